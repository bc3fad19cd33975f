// Package host assembles a messaging host with fx: logger, transport, the
// page window, its messenger, and the HTTP surface.
package host

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"ClawdCity-Messaging/internal/config"
	"ClawdCity-Messaging/internal/core/codec"
	"ClawdCity-Messaging/internal/core/network"
	"ClawdCity-Messaging/internal/core/window"
	"ClawdCity-Messaging/internal/inbox"
	"ClawdCity-Messaging/internal/messaging"
	"ClawdCity-Messaging/internal/messagingapi"
	"ClawdCity-Messaging/internal/observability"
)

// Module returns the full option set for a host running cfg.
func Module(cfg config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			provideLogger,
			provideBus,
			provideWindow,
			provideMessenger,
			provideInbox,
			provideAPI,
			provideHTTPServer,
		),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		fx.Invoke(syncLoggerOnStop, applyConfig, func(*HTTPServer) {}),
	)
}

func provideLogger(cfg config.Config) (*zap.Logger, error) {
	return observability.NewLogger(cfg.Log)
}

func syncLoggerOnStop(lc fx.Lifecycle, log *zap.Logger) {
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		_ = log.Sync()
		return nil
	}})
}

func provideBus(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (network.PubSub, error) {
	switch cfg.Transport.Kind {
	case config.TransportLibp2p:
		p2p := cfg.Transport.Libp2p
		bus, err := network.NewLibp2pPubSub(context.Background(), network.Libp2pOptions{
			ListenAddrs:     p2p.ListenAddrs,
			Bootstrap:       p2p.Bootstrap,
			Rendezvous:      p2p.Rendezvous,
			EnableMDNS:      p2p.EnableMDNS,
			IdentityKeyFile: p2p.IdentityKeyFile,
			BufferSize:      cfg.Transport.BufferSize,
			Logger:          log.Named("libp2p"),
		})
		if err != nil {
			return nil, err
		}
		log.Info("libp2p transport ready",
			zap.String("peer_id", bus.PeerID()),
			zap.Strings("listen", bus.ListenAddrs()),
		)
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return bus.Close() }})
		return bus, nil
	default:
		return network.NewMemoryPubSub(
			network.WithBufferSize(cfg.Transport.BufferSize),
			network.WithMemoryLogger(log.Named("memory")),
		), nil
	}
}

func provideWindow(lc fx.Lifecycle, cfg config.Config, bus network.PubSub, log *zap.Logger) (*window.Window, error) {
	c, err := codec.NewRegistry().Get(cfg.Transport.Codec)
	if err != nil {
		return nil, err
	}
	w, err := window.Open(context.Background(), bus, cfg.Page.Origin,
		window.WithID(cfg.Page.WindowID),
		window.WithCodec(c),
		window.WithLogger(log.Named("window")),
	)
	if err != nil {
		return nil, err
	}
	log.Info("page window open", zap.String("window_id", w.ID()), zap.String("origin", w.Origin()))
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return w.Close() }})
	return w, nil
}

func provideMessenger(w *window.Window, log *zap.Logger) *messaging.Messenger {
	l := log.Named("messaging")
	return messaging.NewMessenger(w, l, messaging.WithDropHook(messaging.LogDrops(l)))
}

func provideInbox() *inbox.Inbox {
	return inbox.New(network.NewMemoryPubSub(), inbox.DefaultKeep)
}

func provideAPI(cfg config.Config, w *window.Window, m *messaging.Messenger, in *inbox.Inbox, log *zap.Logger) *messagingapi.Server {
	return messagingapi.NewServer(w, m, in,
		messagingapi.WithLogger(log.Named("api")),
		messagingapi.WithStaticDir(cfg.HTTP.StaticDir),
	)
}

// applyConfig binds the frames and configures the channels declared in
// cfg, in order. Any failure aborts startup.
func applyConfig(cfg config.Config, api *messagingapi.Server) error {
	for _, f := range cfg.Frames {
		if _, err := api.BindFrame(f.ElementID, f.WindowID); err != nil {
			return fmt.Errorf("host: frame %q: %w", f.ElementID, err)
		}
	}
	for _, ch := range cfg.Channels {
		spec := messagingapi.ChannelSpec{ElementID: ch.ElementID, Settings: ch.Settings()}
		if ch.Reply != "" {
			spec.Reply = ch.Reply
		}
		if _, err := api.ConfigureChannel(spec); err != nil {
			return fmt.Errorf("host: channel %q: %w", ch.ElementID, err)
		}
	}
	return nil
}

// HTTPServer is the running HTTP surface.
type HTTPServer struct {
	srv *http.Server
	ln  net.Listener
}

// Addr is the bound listen address, valid after start.
func (h *HTTPServer) Addr() string {
	if h.ln == nil {
		return ""
	}
	return h.ln.Addr().String()
}

func provideHTTPServer(lc fx.Lifecycle, cfg config.Config, api *messagingapi.Server, log *zap.Logger) *HTTPServer {
	h := &HTTPServer{srv: &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", h.srv.Addr)
			if err != nil {
				return fmt.Errorf("host: listen %s: %w", h.srv.Addr, err)
			}
			h.ln = ln
			log.Info("http server starting", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("http server stopping")
			return h.srv.Shutdown(ctx)
		},
	})
	return h
}

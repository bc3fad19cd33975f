package window

// ElementKind says what a page element can do in a messaging exchange.
type ElementKind int

const (
	// KindContainer is a plain element of the hosting page. Messages for it
	// arrive on the page's own window.
	KindContainer ElementKind = iota
	// KindFrame is an embedded frame whose content window can be posted to.
	KindFrame
)

func (k ElementKind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// Target is anything a message can be posted to: a frame's content window,
// or the source of an inbound message.
type Target interface {
	PostMessage(data any, targetOrigin string) error
}

// Element is a page element a messaging channel can be bound to.
type Element interface {
	ID() string
	Kind() ElementKind
}

// Frame is an embedded frame element.
type Frame struct {
	id      string
	content Target
}

func NewFrame(id string, contentWindow Target) *Frame {
	return &Frame{id: id, content: contentWindow}
}

func (f *Frame) ID() string            { return f.id }
func (f *Frame) Kind() ElementKind     { return KindFrame }
func (f *Frame) ContentWindow() Target { return f.content }

// Container is a non-frame element of the hosting page.
type Container struct {
	id string
}

func NewContainer(id string) *Container {
	return &Container{id: id}
}

func (c *Container) ID() string        { return c.id }
func (c *Container) Kind() ElementKind { return KindContainer }

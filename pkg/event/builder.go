package event

import "github.com/Mindburn-Labs/nostrevent/pkg/crypto"

// Builder assembles an event without exposing a half-built record. The first
// invalid value is kept and returned by Build or BuildSigned; later calls are
// ignored.
type Builder struct {
	ev  Event
	err error
}

// NewBuilder starts an event stamped with the current time.
func NewBuilder() *Builder {
	return &Builder{ev: Event{createdAt: now().Unix()}}
}

// ToBuilder starts a builder from the event's fields. The id and signature
// are not carried over.
func (e *Event) ToBuilder() *Builder {
	ev := e.Clone()
	ev.id, ev.sig = "", ""
	return &Builder{ev: *ev}
}

func (b *Builder) set(fn func(*Event) error) *Builder {
	if b.err == nil {
		b.err = fn(&b.ev)
	}
	return b
}

// PublicKey is only needed for Build; BuildSigned takes it from the signer.
func (b *Builder) PublicKey(pubKey string) *Builder {
	return b.set(func(e *Event) error { return e.SetPublicKey(pubKey) })
}

func (b *Builder) CreatedAt(createdAt int64) *Builder {
	return b.set(func(e *Event) error { return e.SetCreatedAt(createdAt) })
}

func (b *Builder) Kind(kind int) *Builder {
	return b.set(func(e *Event) error { return e.SetKind(kind) })
}

func (b *Builder) Tags(tags Tags) *Builder {
	return b.set(func(e *Event) error { e.SetTags(tags); return nil })
}

func (b *Builder) AddTag(tag ...string) *Builder {
	return b.set(func(e *Event) error { e.AddTag(Tag(tag)); return nil })
}

func (b *Builder) Content(content string) *Builder {
	return b.set(func(e *Event) error { e.SetContent(content); return nil })
}

// Build returns an event with its id computed.
func (b *Builder) Build() (*Event, error) {
	if b.err != nil {
		return nil, b.err
	}
	ev := b.ev.Clone()
	if err := checkHex(FieldPubKey, ev.pubKey, PubKeyHexLen); err != nil {
		return nil, err
	}
	if err := ev.UpdateID(); err != nil {
		return nil, err
	}
	return ev, nil
}

// BuildSigned returns an event signed by signer.
func (b *Builder) BuildSigned(signer crypto.Signer) (*Event, error) {
	if b.err != nil {
		return nil, b.err
	}
	ev := b.ev.Clone()
	if err := ev.Sign(signer); err != nil {
		return nil, err
	}
	return ev, nil
}

package relay

import (
	"encoding/json"
	"errors"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pion/webrtc/v4"

	"github.com/trezcool/proctor/core"
)

// Kind of a Message.
type Kind string

// inbound
const (
	KindOffer            Kind = "negotiation-offer"
	KindAnswer           Kind = "negotiation-answer"
	KindCandidate        Kind = "negotiation-candidate"
	KindFrame            Kind = "frame"
	KindVisibilityHidden Kind = "visibility-hidden"
	KindFullscreenExit   Kind = "fullscreen-exit"
)

// outbound
const (
	KindConnect    Kind = "connect-notice"
	KindDisconnect Kind = "disconnect-notice"
	KindAlert      Kind = "alert"
	KindWarning    Kind = "warning"
	KindTerminated Kind = "terminated"
)

var (
	ErrUnknownKind    = errors.New("unknown message type")
	ErrInvalidPayload = errors.New("invalid payload")
)

func (k Kind) IsNegotiation() bool {
	return k == KindOffer || k == KindAnswer || k == KindCandidate
}

func (k Kind) IsInbound() bool {
	switch k {
	case KindOffer, KindAnswer, KindCandidate, KindFrame, KindVisibilityHidden, KindFullscreenExit:
		return true
	}
	return false
}

// Message is the envelope exchanged over the real-time channel.
// Payload is opaque to the relay except for shape checks.
type Message struct {
	Type     Kind            `json:"type" validate:"required"`
	Sender   string          `json:"senderIdentity,omitempty"`
	Target   string          `json:"targetIdentity,omitempty"`
	Identity string          `json:"identity,omitempty"`
	Role     string          `json:"role,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Alerts   []string        `json:"alerts,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Warnings int             `json:"warnings,omitempty"`
}

var (
	targetTag  = "target"
	targetText = "a target identity is required"
)

// InitValidators registers the relay validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(messageStructValidation, Message{})
	core.RegisterCustomTranslation(validate, translator, targetTag, targetText)
}

func messageStructValidation(sl validator.StructLevel) {
	msg := sl.Current().Interface().(Message)
	if msg.Type.IsNegotiation() && strings.TrimSpace(msg.Target) == "" {
		sl.ReportError(msg.Target, "targetIdentity", "Target", targetTag, "")
	}
}

// DecodeMessage parses and validates an inbound message.
func DecodeMessage(validate *validator.Validate, data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, core.NewValidationError(err)
	}
	msg.Target = core.CleanString(msg.Target)
	msg.Sender = "" // stamped by the server

	if !msg.Type.IsInbound() {
		return Message{}, core.NewValidationError(ErrUnknownKind, core.FieldError{Field: "type", Error: ErrUnknownKind.Error()})
	}
	if err := validate.Struct(msg); err != nil {
		return Message{}, err
	}
	if err := msg.checkPayload(); err != nil {
		return Message{}, core.NewValidationError(err, core.FieldError{Field: "payload", Error: err.Error()})
	}
	return msg, nil
}

// checkPayload verifies the payload shape of the message kind.
func (msg Message) checkPayload() error {
	switch msg.Type {
	case KindOffer, KindAnswer:
		var desc webrtc.SessionDescription
		if err := json.Unmarshal(msg.Payload, &desc); err != nil {
			return ErrInvalidPayload
		}
		want := webrtc.SDPTypeOffer
		if msg.Type == KindAnswer {
			want = webrtc.SDPTypeAnswer
		}
		if desc.Type != want || strings.TrimSpace(desc.SDP) == "" {
			return ErrInvalidPayload
		}
	case KindCandidate:
		var cand webrtc.ICECandidateInit
		if err := json.Unmarshal(msg.Payload, &cand); err != nil {
			return ErrInvalidPayload
		}
	case KindFrame:
		if _, err := msg.Frame(); err != nil {
			return err
		}
	}
	return nil
}

// Frame returns the encoded image carried by a frame message.
func (msg Message) Frame() ([]byte, error) {
	var frame string
	if err := json.Unmarshal(msg.Payload, &frame); err != nil || frame == "" {
		return nil, ErrInvalidPayload
	}
	return []byte(frame), nil
}

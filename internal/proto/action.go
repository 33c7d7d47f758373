package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vovakirdan/chatrelay/internal/core"
)

const (
	ActionTypeCreate = "CREATE"
	ActionTypeRead   = "READ"

	// MaxTextLength bounds the text of a single message, in characters.
	MaxTextLength = 4096
)

// ErrDecode marks a frame that is not a valid action.
var ErrDecode = errors.New("proto: decode")

// UUIDTag accepts any id uuid.Parse does, hex digits in either case. The
// stock "uuid" tag only matches lowercase.
const UUIDTag = "anyuuid"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterValidations adds the wire tags used by request types to v.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation(UUIDTag, func(fl validator.FieldLevel) bool {
		_, err := uuid.Parse(fl.Field().String())
		return err == nil
	})
}

type envelope struct {
	Type string `json:"type"`
}

// CreateRequest is the wire form of a Create action.
type CreateRequest struct {
	Type           string     `json:"type"`
	Text           string     `json:"text" validate:"required,max=4096"`
	FromSpecialist bool       `json:"fromSpecialist"`
	SentAt         *Timestamp `json:"sentAt,omitempty"`
}

// ReadRequest is the wire form of a Read action.
type ReadRequest struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId" validate:"required,anyuuid"`
}

// DecodeAction parses one inbound frame. Every failure wraps ErrDecode.
func DecodeAction(data []byte) (core.Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	switch env.Type {
	case ActionTypeCreate:
		var req CreateRequest
		if err := decodeValid(data, &req); err != nil {
			return nil, err
		}
		action := core.CreateAction{Text: req.Text, FromSpecialist: req.FromSpecialist}
		if req.SentAt != nil && !req.SentAt.IsZero() {
			sentAt := req.SentAt.Time
			action.SentAt = &sentAt
		}
		return action, nil

	case ActionTypeRead:
		var req ReadRequest
		if err := decodeValid(data, &req); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(req.MessageID)
		if err != nil {
			return nil, fmt.Errorf("%w: message id: %w", ErrDecode, err)
		}
		return core.ReadAction{MessageID: id}, nil

	case "":
		return nil, fmt.Errorf("%w: missing action type", ErrDecode)
	default:
		return nil, fmt.Errorf("%w: unknown action type %q", ErrDecode, env.Type)
	}
}

// EncodeAction renders an action in the form DecodeAction accepts.
func EncodeAction(action core.Action) ([]byte, error) {
	var v any
	switch a := action.(type) {
	case core.CreateAction:
		req := CreateRequest{Type: ActionTypeCreate, Text: a.Text, FromSpecialist: a.FromSpecialist}
		if a.SentAt != nil {
			req.SentAt = &Timestamp{Time: *a.SentAt}
		}
		v = req
	case core.ReadAction:
		v = ReadRequest{Type: ActionTypeRead, MessageID: a.MessageID.String()}
	default:
		return nil, fmt.Errorf("%w: %T", core.ErrUnknownAction, action)
	}
	return json.Marshal(v)
}

func decodeValid(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

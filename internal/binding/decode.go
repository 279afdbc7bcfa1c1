package binding

import (
	"encoding/json"
	"errors"
	"fmt"

	"agency/internal/docstore"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var errInvalidDocument = errors.New("invalid document")

// Identifiable documents receive their store id on decode.
type Identifiable interface {
	SetDocumentID(id string)
}

var defaultValidate = validator.New(validator.WithRequiredStructEnabled())

// Config carries the collaborators every hook shares.
type Config struct {
	Logger   *zap.Logger
	Validate *validator.Validate
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c Config) validate() *validator.Validate {
	if c.Validate == nil {
		return defaultValidate
	}
	return c.Validate
}

// Decode turns raw document JSON into D and validates it. Non-struct types
// are accepted without validation.
func Decode[D any](validate *validator.Validate, id string, raw json.RawMessage) (D, error) {
	var value D
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, fmt.Errorf("%w: decode %s: %v", errInvalidDocument, id, err)
	}

	if identifiable, ok := any(&value).(Identifiable); ok {
		identifiable.SetDocumentID(id)
	}

	if validate == nil {
		validate = defaultValidate
	}
	if err := validate.Struct(&value); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return value, nil
		}
		return value, fmt.Errorf("%w: validate %s: %v", errInvalidDocument, id, err)
	}

	return value, nil
}

// decodeSnapshot keeps store order and drops documents that fail the read
// boundary. The result is never nil, so an empty result is distinguishable
// from "no data yet".
func decodeSnapshot[D any](cfg Config, snapshot docstore.QuerySnapshot) []D {
	out := make([]D, 0, len(snapshot.Docs))
	for _, doc := range snapshot.Docs {
		value, err := Decode[D](cfg.validate(), doc.ID(), doc.Data)
		if err != nil {
			rejectedDocuments.WithLabelValues(doc.Ref.Collection).Inc()
			cfg.logger().Warn("reject malformed document",
				zap.String("path", doc.Ref.Path()),
				zap.Error(err),
			)
			continue
		}
		out = append(out, value)
	}
	return out
}

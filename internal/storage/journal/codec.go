package journal

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/dmarques/ciclo/internal/domain"
)

func marshalEvent(event domain.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(err, "marshal journal event")
	}
	return payload, nil
}

func unmarshalEvent(payload []byte) (domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.Event{}, errors.Wrap(err, "decode journal event")
	}
	return event, nil
}

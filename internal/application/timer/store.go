package timer

import (
	"encoding/json"
	"errors"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/repository"
)

// snapshotVersion versión del formato persistido del registro.
const snapshotVersion = 1

type snapshot struct {
	Version int            `json:"version"`
	Timers  []entity.Timer `json:"timers"`
}

func loadTimers(store repository.KVStore, key string) ([]entity.Timer, error) {
	raw, err := store.Get(key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s.Timers, nil
}

func saveTimers(store repository.KVStore, key string, timers []entity.Timer) error {
	raw, err := json.Marshal(snapshot{Version: snapshotVersion, Timers: timers})
	if err != nil {
		return err
	}
	return store.Set(key, raw)
}

func loadETA(store repository.KVStore, key string) (entity.ArrivalEstimate, bool, error) {
	raw, err := store.Get(key)
	if errors.Is(err, domain.ErrNotFound) {
		return entity.ArrivalEstimate{}, false, nil
	}
	if err != nil {
		return entity.ArrivalEstimate{}, false, err
	}
	var eta entity.ArrivalEstimate
	if err := json.Unmarshal(raw, &eta); err != nil {
		return entity.ArrivalEstimate{}, false, err
	}
	return eta, true, nil
}

func saveETA(store repository.KVStore, key string, eta entity.ArrivalEstimate) error {
	raw, err := json.Marshal(eta)
	if err != nil {
		return err
	}
	return store.Set(key, raw)
}

package bootctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/autopeer-io/otarecovery/pkg/log"
)

// DefaultStateFile backs the development boot-control HAL.
const DefaultStateFile = "/data/misc/bootctl/state.json"

type slotState struct {
	Suffix     string `json:"suffix"`
	Bootable   bool   `json:"bootable"`
	Successful bool   `json:"successful"`
}

type fileState struct {
	Current uint32      `json:"current"`
	Slots   []slotState `json:"slots"`
}

func defaultState() *fileState {
	return &fileState{
		Current: 0,
		Slots: []slotState{
			{Suffix: "_a", Bootable: true, Successful: true},
			{Suffix: "_b", Bootable: true},
		},
	}
}

// FileHAL keeps slot state in a JSON file. It stands in for the bootloader
// HAL on development images and in tests.
type FileHAL struct {
	mu   sync.Mutex
	path string
}

var (
	_ Client    = (*FileHAL)(nil)
	_ Inspector = (*FileHAL)(nil)
)

// NewFileHAL opens path, seeding a two-slot layout when it does not exist.
func NewFileHAL(path string) (*FileHAL, error) {
	h := &FileHAL{path: path}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		log.Info("Seeding boot-control state", "path", path)
		if err := h.save(defaultState()); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if _, err := h.load(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *FileHAL) load() (*fileState, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		return nil, fmt.Errorf("read boot-control state: %w", err)
	}
	st := &fileState{}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decode boot-control state %s: %w", h.path, err)
	}
	if int(st.Current) >= len(st.Slots) {
		return nil, fmt.Errorf("boot-control state %s: current slot %d of %d", h.path, st.Current, len(st.Slots))
	}
	return st, nil
}

func (h *FileHAL) save(st *fileState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write boot-control state: %w", err)
	}
	return os.Rename(tmp, h.path)
}

func (h *FileHAL) GetCurrentSlot(context.Context) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, err := h.load()
	if err != nil {
		return 0, err
	}
	return st.Current, nil
}

func (h *FileHAL) IsSlotMarkedSuccessful(_ context.Context, slot uint32) (BoolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, err := h.load()
	if err != nil {
		return False, err
	}
	if int(slot) >= len(st.Slots) {
		return InvalidSlot, nil
	}
	if st.Slots[slot].Successful {
		return True, nil
	}
	return False, nil
}

func (h *FileHAL) MarkBootSuccessful(context.Context) (CommandResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, err := h.load()
	if err != nil {
		return CommandResult{}, err
	}
	cur := &st.Slots[st.Current]
	if !cur.Bootable {
		return CommandResult{Message: fmt.Sprintf("slot %s is not bootable", cur.Suffix)}, nil
	}
	cur.Successful = true
	if err := h.save(st); err != nil {
		return CommandResult{Message: err.Error()}, nil
	}
	log.Info("Marked boot successful", "slot", st.Current, "suffix", cur.Suffix)
	return CommandResult{Success: true}, nil
}

// SetActiveSlot switches the running slot and clears its success flag, as
// happens when an update is applied and the device reboots into it.
func (h *FileHAL) SetActiveSlot(slot uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, err := h.load()
	if err != nil {
		return err
	}
	if int(slot) >= len(st.Slots) {
		return fmt.Errorf("slot %d out of range (%d slots)", slot, len(st.Slots))
	}
	st.Current = slot
	st.Slots[slot].Bootable = true
	st.Slots[slot].Successful = false
	return h.save(st)
}

func (h *FileHAL) Slots(context.Context) ([]Slot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, err := h.load()
	if err != nil {
		return nil, err
	}
	out := make([]Slot, len(st.Slots))
	for i, s := range st.Slots {
		out[i] = Slot{
			Index:      uint32(i),
			Suffix:     s.Suffix,
			Bootable:   s.Bootable,
			Successful: s.Successful,
			Current:    uint32(i) == st.Current,
		}
	}
	return out, nil
}

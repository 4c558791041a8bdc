package synthesis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"revoice/internal/catalog"
	"revoice/internal/services"
)

// ErrNoVoiceSelected indicates an empty voice identifier.
var ErrNoVoiceSelected = errors.New("no voice selected")

// RefKind discriminates the VoiceRef variants.
type RefKind int

const (
	// RefPresetIndex selects a preset by 1-based position in the engine's list.
	RefPresetIndex RefKind = iota + 1
	// RefPresetName selects a preset by speaker name.
	RefPresetName
	// RefStoredVoice selects a catalog voice by id.
	RefStoredVoice
)

// VoiceRef is a voice selection as supplied by a caller.
type VoiceRef struct {
	Kind  RefKind
	Index int
	Name  string
	ID    int64
}

func (r VoiceRef) String() string {
	switch r.Kind {
	case RefPresetIndex:
		return fmt.Sprintf("preset #%d", r.Index)
	case RefPresetName:
		return fmt.Sprintf("preset %q", r.Name)
	case RefStoredVoice:
		return fmt.Sprintf("voice %d", r.ID)
	default:
		return "unset"
	}
}

// ParseVoiceRef interprets the (voice_id, is_preset) pair accepted by the
// API. Preset identifiers that are all digits are positions in the preset
// list; other preset identifiers are speaker names. Custom identifiers must
// be catalog ids.
func ParseVoiceRef(voiceID string, isPreset bool) (VoiceRef, error) {
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return VoiceRef{}, ErrNoVoiceSelected
	}
	if isPreset {
		if n, err := strconv.Atoi(voiceID); err == nil {
			return VoiceRef{Kind: RefPresetIndex, Index: n}, nil
		}
		return VoiceRef{Kind: RefPresetName, Name: voiceID}, nil
	}
	id, err := strconv.ParseInt(voiceID, 10, 64)
	if err != nil || id <= 0 {
		return VoiceRef{}, services.Wrap(services.ErrValidation, "synthesize", "parse voice", fmt.Sprintf("invalid voice id %q", voiceID), nil)
	}
	return VoiceRef{Kind: RefStoredVoice, ID: id}, nil
}

// Voice is a resolved voice ready for the synthesis engine. Preset voices
// carry only Name; custom voices carry a reference clip and its transcript.
type Voice struct {
	Name       string
	Preset     bool
	Reference  string
	PromptText string
	// StoredID is the catalog id when the voice came from the catalog.
	StoredID *int64
}

// VoiceLookup fetches catalog voices.
type VoiceLookup interface {
	GetVoice(ctx context.Context, id int64) (*catalog.Voice, error)
}

// PresetLister lists the engine's built-in speakers in a stable order.
type PresetLister interface {
	PresetVoices(ctx context.Context) ([]string, error)
}

// Resolver turns VoiceRefs into Voices.
type Resolver struct {
	Voices            VoiceLookup
	Presets           PresetLister
	VoiceDir          string
	DefaultPromptText string
}

// Resolve validates that ref exists and that principal may use it.
func (r *Resolver) Resolve(ctx context.Context, ref VoiceRef, principal services.Principal) (Voice, error) {
	switch ref.Kind {
	case RefPresetIndex, RefPresetName:
		return r.resolvePreset(ctx, ref)
	case RefStoredVoice:
		return r.resolveStored(ctx, ref.ID, principal)
	default:
		return Voice{}, ErrNoVoiceSelected
	}
}

func (r *Resolver) resolvePreset(ctx context.Context, ref VoiceRef) (Voice, error) {
	if r.Presets == nil {
		return Voice{}, services.Wrap(services.ErrConfiguration, "synthesize", "resolve voice", "preset voices unavailable", nil)
	}
	presets, err := r.Presets.PresetVoices(ctx)
	if err != nil {
		return Voice{}, services.Wrap(services.ErrExternalTool, "synthesize", "resolve voice", "list preset voices", err)
	}
	if len(presets) == 0 {
		return Voice{}, services.Wrap(services.ErrNotFound, "synthesize", "resolve voice", "no preset voices available", nil)
	}
	if ref.Kind == RefPresetName {
		if !slices.Contains(presets, ref.Name) {
			return Voice{}, services.Wrap(services.ErrNotFound, "synthesize", "resolve voice", fmt.Sprintf("preset voice %q not found", ref.Name), nil)
		}
		return Voice{Name: ref.Name, Preset: true}, nil
	}
	if ref.Index < 1 || ref.Index > len(presets) {
		return Voice{}, services.Wrap(services.ErrValidation, "synthesize", "resolve voice",
			fmt.Sprintf("preset index %d out of range (1-%d)", ref.Index, len(presets)), nil)
	}
	return Voice{Name: presets[ref.Index-1], Preset: true}, nil
}

func (r *Resolver) resolveStored(ctx context.Context, id int64, principal services.Principal) (Voice, error) {
	if r.Voices == nil {
		return Voice{}, services.Wrap(services.ErrConfiguration, "synthesize", "resolve voice", "voice catalog unavailable", nil)
	}
	stored, err := r.Voices.GetVoice(ctx, id)
	if err != nil {
		return Voice{}, err
	}
	if !stored.IsPreset && !principal.CanAccess(stored.UserID) {
		return Voice{}, services.Wrap(services.ErrForbidden, "synthesize", "resolve voice", fmt.Sprintf("voice %d belongs to another user", id), nil)
	}
	storedID := stored.ID
	if stored.IsPreset {
		return Voice{Name: stored.Name, Preset: true, StoredID: &storedID}, nil
	}

	reference := filepath.Join(r.VoiceDir, filepath.Base(stored.Filename))
	if info, err := os.Stat(reference); err != nil || info.IsDir() {
		return Voice{}, services.Wrap(services.ErrNotFound, "synthesize", "resolve voice", fmt.Sprintf("reference audio %s missing", reference), err)
	}
	prompt := strings.TrimSpace(stored.Transcript)
	if prompt == "" {
		prompt = r.DefaultPromptText
	}
	return Voice{
		Name:       stored.Name,
		Reference:  reference,
		PromptText: prompt,
		StoredID:   &storedID,
	}, nil
}

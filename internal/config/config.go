// Package config defines the persisted-state snapshots the core reads:
// per-character geometry, custom-source rules, and the global daemon
// flags. Persistence itself (reading/writing the TOML file, backups) is
// the external config layer's job per spec; this package only defines the
// shapes and decodes/encodes them.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/h0lylag/evepreviewd/internal/geom"
)

// CharacterSettings is the per-identity persisted geometry. Entries come
// from the loaded configuration or a SetCharacterSetting message, and the
// core replaces an entry on drag-end; it does not create one when an
// identity is first observed, and never deletes one.
type CharacterSettings struct {
	Position              geom.Position `toml:"position" json:"position"`
	Dimensions            geom.Dimensions `toml:"dimensions" json:"dimensions"`
	OverrideRenderPreview *bool         `toml:"override_render_preview,omitempty" json:"override_render_preview,omitempty"`
	ExemptFromMinimize    bool          `toml:"exempt_from_minimize" json:"exempt_from_minimize"`

	// LastSeen is informational only; the core neither reads nor updates
	// it, and a drag-end replacement of the entry leaves it zero.
	LastSeen time.Time `toml:"last_seen" json:"last_seen"`
}

// HasOwnGeometry reports whether settings carry a saved (non-zero) size,
// as opposed to the zero value a brand-new identity gets. The position is
// not consulted.
func (c CharacterSettings) HasOwnGeometry() bool {
	return c.Dimensions.Width != 0 || c.Dimensions.Height != 0
}

// CustomWindowRule matches non-client windows (e.g. a popped-out overview)
// the user wants mirrored alongside character thumbnails.
type CustomWindowRule struct {
	Alias               string          `toml:"alias" json:"alias"`
	ClassPattern        string          `toml:"class_pattern,omitempty" json:"class_pattern,omitempty"`
	TitlePattern        string          `toml:"title_pattern,omitempty" json:"title_pattern,omitempty"`
	DefaultDimensions   geom.Dimensions `toml:"default_dims" json:"default_dims"`
	LimitSingleInstance bool            `toml:"limit_single_instance" json:"limit_single_instance"`
}

// Profile is one named configuration of tracked identities, rules, and
// hotkey bindings, plus the profile-wide defaults the dims-fallback
// invariant scales against.
type Profile struct {
	Name                   string                       `toml:"name" json:"name"`
	CharacterThumbnails    map[string]CharacterSettings `toml:"character_thumbnails" json:"character_thumbnails"`
	CustomSourceThumbnails map[string]CharacterSettings `toml:"custom_source_thumbnails" json:"custom_source_thumbnails"`
	CustomWindows          []CustomWindowRule           `toml:"custom_windows" json:"custom_windows"`
	HotkeyCycleGroup       []string                     `toml:"hotkey_cycle_group" json:"hotkey_cycle_group"`
	CharacterHotkeyOrder   []string                     `toml:"character_hotkey_order" json:"character_hotkey_order"`
	CharacterHotkeys       map[string]string            `toml:"character_hotkeys" json:"character_hotkeys"`

	// ScreenScaleReference is the screen size the default thumbnail
	// dimensions were chosen against; DefaultThumbnailSize scales
	// DefaultDimensions proportionally to the screen actually in use.
	ScreenScaleReference geom.Dimensions `toml:"screen_scale_reference" json:"screen_scale_reference"`
	DefaultDimensions    geom.Dimensions `toml:"default_dimensions" json:"default_dimensions"`

	// SkippedIdentities is the hotkey-cycle skip set: identities present
	// (with a true value) here are passed over by session.Cycle. Mutated
	// by InboundSetSkipped and the ToggleSkip hotkey.
	SkippedIdentities map[string]bool `toml:"skipped_identities" json:"skipped_identities"`
}

// IsSkipped reports whether identity is currently excluded from hotkey
// cycling.
func (p Profile) IsSkipped(identity string) bool {
	return p.SkippedIdentities[identity]
}

// DefaultThumbnailSize scales Profile.DefaultDimensions by the ratio of the
// live screen size to ScreenScaleReference, so thumbnails keep roughly the
// same on-screen proportion across different monitor resolutions.
func (p Profile) DefaultThumbnailSize(screen geom.Dimensions) geom.Dimensions {
	if p.ScreenScaleReference.Width == 0 || p.ScreenScaleReference.Height == 0 {
		return p.DefaultDimensions
	}
	scaleW := float64(screen.Width) / float64(p.ScreenScaleReference.Width)
	scaleH := float64(screen.Height) / float64(p.ScreenScaleReference.Height)
	return geom.Dimensions{
		Width:  uint16(float64(p.DefaultDimensions.Width) * scaleW),
		Height: uint16(float64(p.DefaultDimensions.Height) * scaleH),
	}
}

// DaemonConfig is the full snapshot the core operates against: the active
// profile plus the global toggles that affect every window.
type DaemonConfig struct {
	Profile Profile `toml:"profile" json:"profile"`

	ClientMinimizeOnSwitch          bool `toml:"client_minimize_on_switch" json:"client_minimize_on_switch"`
	ThumbnailHideNotFocused         bool `toml:"thumbnail_hide_not_focused" json:"thumbnail_hide_not_focused"`
	ThumbnailAutoSavePosition       bool `toml:"thumbnail_auto_save_position" json:"thumbnail_auto_save_position"`
	ThumbnailPreservePositionOnSwap bool `toml:"thumbnail_preserve_position_on_swap" json:"thumbnail_preserve_position_on_swap"`
	ThumbnailSnapThreshold          int32 `toml:"thumbnail_snap_threshold" json:"thumbnail_snap_threshold"`
}

// Decode reads a DaemonConfig snapshot from a TOML file, e.g. the
// `--config` standalone path or a manual reload outside the IPC channel.
func Decode(path string) (*DaemonConfig, error) {
	var cfg DaemonConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &cfg, nil
}

// Encode writes a DaemonConfig snapshot back to a TOML file, encoding into a
// buffer first so a failed encode never truncates the existing file.
func Encode(path string, cfg *DaemonConfig) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

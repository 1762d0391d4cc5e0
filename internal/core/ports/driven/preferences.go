package driven

// PreferencesStore persists the browser's preferences object.
// The contents are opaque to the core apart from the keys a download merges in.
type PreferencesStore interface {
	// Load returns the stored preferences, or an empty map.
	Load() (map[string]any, error)

	// Save replaces the stored preferences.
	Save(prefs map[string]any) error

	// Merge overwrites the given keys and keeps the rest.
	Merge(updates map[string]any) error
}

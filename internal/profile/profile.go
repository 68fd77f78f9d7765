// Package profile manages the student's persistent studyai profile.
// The profile is stored at ~/.config/studyai/profile.json and is created
// once via the interactive setup flow, then used to open every session.
package profile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fakeyudi/studyai/internal/config"
	"github.com/fakeyudi/studyai/internal/session"
)

// Profile holds student-level preferences set during first-run setup.
type Profile struct {
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	Level     string `json:"level"`      // starting level for a fresh history
	AutoSpeak bool   `json:"auto_speak"` // read answers aloud from the start
}

// profilePath returns the path to the profile file.
func profilePath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.json"), nil
}

// Exists reports whether a profile file is present on disk.
func Exists() bool {
	p, err := profilePath()
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Load reads the profile from disk. Returns an error if the file is missing or malformed.
func Load() (*Profile, error) {
	p, err := profilePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("profile not found, run 'studyai setup' to configure: %w", err)
	}
	var prof Profile
	if err := json.Unmarshal(data, &prof); err != nil {
		return nil, fmt.Errorf("malformed profile at %s: %w", p, err)
	}
	return &prof, nil
}

// Save writes the profile to disk, creating the config directory if needed.
func Save(prof *Profile) error {
	p, err := profilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(prof, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// RunSetup runs the interactive setup wizard over in/out and returns the
// resulting profile. If existing is non-nil, it is used as the default for
// each prompt (edit mode).
func RunSetup(in io.Reader, out io.Writer, existing *Profile) (*Profile, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	askBool := func(prompt string, defaultVal bool) (bool, error) {
		def := "n"
		if defaultVal {
			def = "y"
		}
		ans, err := ask(prompt+" (y/n)", def)
		if err != nil {
			return false, err
		}
		return strings.ToLower(ans) == "y" || strings.ToLower(ans) == "yes", nil
	}

	prof := &Profile{
		Subject: "General",
		Level:   session.LevelIntermediate,
	}
	if existing != nil {
		*prof = *existing
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │   studyai · first-time setup    │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	var err error
	for {
		prof.Name, err = ask("  Your name", prof.Name)
		if err != nil {
			return nil, err
		}
		if prof.Name != "" {
			break
		}
		fmt.Fprintln(out, "  Please enter your name")
	}

	prof.Subject, err = ask("  Subject you are studying", prof.Subject)
	if err != nil {
		return nil, err
	}

	level, err := ask("  Level ("+strings.Join(session.Levels, "/")+")", prof.Level)
	if err != nil {
		return nil, err
	}
	if slices.Contains(session.Levels, level) {
		prof.Level = level
	} else {
		prof.Level = session.LevelIntermediate
	}

	prof.AutoSpeak, err = askBool("  Read answers aloud", prof.AutoSpeak)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	return prof, nil
}

package voice

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Runner executes a speech program and returns its standard output.
// Tests substitute it to avoid spawning processes.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

func defaultRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return string(out), err
}

// speechPrograms are tried in order by NewCommandSynthesizer.
var speechPrograms = []string{"say", "espeak-ng", "espeak"}

// CommandSynthesizer speaks through a local text-to-speech program: say on
// macOS, espeak-ng or espeak elsewhere.
type CommandSynthesizer struct {
	Program string
	Runner  Runner // if nil, runs the program as a subprocess
}

// NewCommandSynthesizer uses program if set, otherwise the first speech
// program found on PATH. It returns ErrUnavailable when none is installed.
func NewCommandSynthesizer(program string) (*CommandSynthesizer, error) {
	candidates := speechPrograms
	if program != "" {
		candidates = []string{program}
	}
	for _, p := range candidates {
		if path, err := exec.LookPath(p); err == nil {
			return &CommandSynthesizer{Program: path}, nil
		}
	}
	return nil, ErrUnavailable
}

func (s *CommandSynthesizer) run(ctx context.Context, args ...string) (string, error) {
	r := s.Runner
	if r == nil {
		r = defaultRunner
	}
	return r(ctx, s.Program, args...)
}

func (s *CommandSynthesizer) isSay() bool {
	return programBase(s.Program) == "say"
}

// Voices lists the voices the program offers.
func (s *CommandSynthesizer) Voices(ctx context.Context) ([]Voice, error) {
	if s.isSay() {
		out, err := s.run(ctx, "-v", "?")
		if err != nil {
			return nil, fmt.Errorf("failed to list voices: %w", err)
		}
		return parseSayVoices(out), nil
	}
	out, err := s.run(ctx, "--voices")
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	return parseEspeakVoices(out), nil
}

// Speak blocks until the program exits. Cancelling ctx kills it.
func (s *CommandSynthesizer) Speak(ctx context.Context, u Utterance) error {
	_, err := s.run(ctx, s.speakArgs(u)...)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// wordsPerMinute is the programs' speaking rate at Rate 1.0.
const wordsPerMinute = 175

func (s *CommandSynthesizer) speakArgs(u Utterance) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	wpm := strconv.Itoa(int(math.Round(rate * wordsPerMinute)))

	var args []string
	if s.isSay() {
		if u.Voice.Name != "" {
			args = append(args, "-v", u.Voice.Name)
		}
		args = append(args, "-r", wpm)
	} else {
		if u.Voice.Name != "" {
			args = append(args, "-v", u.Voice.Name)
		} else if u.Lang != "" {
			args = append(args, "-v", strings.ToLower(u.Lang))
		}
		pitch := u.Pitch
		if pitch <= 0 {
			pitch = DefaultPitch
		}
		// espeak pitch runs 0-99 with 50 as the neutral voice.
		p := min(int(math.Round(pitch*50)), 99)
		args = append(args, "-s", wpm, "-p", strconv.Itoa(p))
	}
	return append(args, "--", u.Text)
}

func programBase(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		p = p[i+1:]
	}
	return strings.TrimSuffix(p, ".exe")
}

// sayVoiceLine matches "Samantha            en_US    # Hello, my name is Samantha."
var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}[_-][A-Za-z0-9]+)\s+#`)

func parseSayVoices(out string) []Voice {
	var voices []Voice
	for _, line := range strings.Split(out, "\n") {
		m := sayVoiceLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		voices = append(voices, Voice{Name: strings.TrimSpace(m[1]), Lang: strings.ReplaceAll(m[2], "_", "-")})
	}
	return voices
}

// parseEspeakVoices reads the table printed by --voices:
//
//	Pty Language       Age/Gender VoiceName          File        Other Languages
//	 5  en-us            --/M      English_(America)  gmw/en-US
func parseEspeakVoices(out string) []Voice {
	var voices []Voice
	for i, line := range strings.Split(out, "\n") {
		if i == 0 {
			continue
		}
		f := strings.Fields(line)
		if len(f) < 4 {
			continue
		}
		voices = append(voices, Voice{Name: f[3], Lang: f[1]})
	}
	return voices
}

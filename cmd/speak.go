package cmd

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/studyai/internal/voice"
)

var speakVoices bool

var speakCmd = &cobra.Command{
	Use:   "speak [text]",
	Short: "Read text aloud with the same voice the chat uses (reads stdin when no text is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current
		if !a.voice.CanSpeak() {
			return errors.New("speech output is not available: install espeak-ng or set speech_command")
		}

		if speakVoices {
			synth, err := voice.NewCommandSynthesizer(a.cfg.SpeechCommand)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Timeout())
			defer cancel()
			voices, err := synth.Voices(ctx)
			if err != nil {
				return err
			}
			best, _ := voice.PickVoice(voices)
			for _, v := range voices {
				mark := " "
				if v == best {
					mark = "*"
				}
				cmd.Printf("%s %-30s %s\n", mark, v.Name, v.Lang)
			}
			return nil
		}

		text := strings.Join(args, " ")
		if text == "" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			text = string(data)
		}

		var (
			mu      sync.Mutex
			lastErr error
		)
		a.voice.OnTransition(func(ev voice.Event) {
			if ev.From == voice.Speaking && ev.Err != nil {
				mu.Lock()
				lastErr = ev.Err
				mu.Unlock()
			}
		})
		if !a.voice.Speak(text) {
			return errors.New("nothing to read aloud")
		}
		// Close returns once the utterance has finished.
		a.voice.Close()

		mu.Lock()
		defer mu.Unlock()
		return lastErr
	},
}

func init() {
	speakCmd.Flags().BoolVar(&speakVoices, "voices", false, "list installed voices; * marks the one used")
	rootCmd.AddCommand(speakCmd)
}

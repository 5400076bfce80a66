package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lukasbauer/hypoteka/internal/engine"
	"github.com/lukasbauer/hypoteka/internal/profile"
	"github.com/lukasbauer/hypoteka/internal/prompt"
	"github.com/lukasbauer/hypoteka/internal/state"
	"github.com/lukasbauer/hypoteka/internal/transcript"
	"github.com/spf13/cobra"
)

type replayOptions struct {
	transcript string
	prior      string
	priorState string
	fragments  string
	now        string
	session    string
	tenant     string
	asJSON     bool
}

func newReplayCmd() *cobra.Command {
	var opts replayOptions

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run one turn offline and print the compiled prompt",
		Long: `Replays a stored transcript through the turn pipeline with default
regulatory limits. Nothing is persisted and no lead is submitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transcript, "transcript", "", "Transcript JSON file (array of messages or {\"messages\": [...]})")
	cmd.Flags().StringVar(&opts.prior, "prior", "", "Prior profile JSON file")
	cmd.Flags().StringVar(&opts.priorState, "state", "", "Prior conversation state JSON file")
	cmd.Flags().StringVar(&opts.fragments, "fragments", "", "Tenant prompt fragments YAML file")
	cmd.Flags().StringVar(&opts.now, "now", "", "Clock for the turn (RFC3339, default current time)")
	cmd.Flags().StringVar(&opts.session, "session", "replay", "Session id recorded on a captured lead")
	cmd.Flags().StringVar(&opts.tenant, "tenant", "", "Tenant id recorded on a captured lead")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the whole turn result as JSON")
	_ = cmd.MarkFlagRequired("transcript")

	return cmd
}

func runReplay(cmd *cobra.Command, opts replayOptions) error {
	messages, err := readTranscript(opts.transcript)
	if err != nil {
		return err
	}

	in := engine.TurnInput{
		SessionID: opts.session,
		TenantID:  opts.tenant,
		Messages:  messages,
		Fragments: prompt.DefaultFragments(),
		Now:       time.Now(),
	}
	reg := engine.DefaultRegulatoryConfig()
	in.Limits, in.Assumptions = reg.Limits, reg.Assumptions

	if opts.prior != "" {
		var p profile.Profile
		if err := readJSON(opts.prior, &p); err != nil {
			return fmt.Errorf("prior profile: %w", err)
		}
		in.PriorProfile = p
	}
	if opts.priorState != "" {
		st := &state.ConversationState{}
		if err := readJSON(opts.priorState, st); err != nil {
			return fmt.Errorf("prior state: %w", err)
		}
		in.PriorState = st
	}
	if opts.fragments != "" {
		f, err := os.Open(opts.fragments)
		if err != nil {
			return err
		}
		defer f.Close()
		if in.Fragments, err = prompt.LoadFragments(f); err != nil {
			return err
		}
	}
	if opts.now != "" {
		if in.Now, err = time.Parse(time.RFC3339, opts.now); err != nil {
			return fmt.Errorf("--now: %w", err)
		}
	}

	res, err := engine.Turn(in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintln(out, res.Prompt.String())
	fmt.Fprintf(out, "\n--- phase=%s persona=%s score=%d temperature=%s offer_lead_capture=%v lead=%v\n",
		res.State.Phase, res.State.Persona, res.Score.Score, res.Score.Temperature, res.OfferLeadCapture, res.Lead != nil)
	return nil
}

// readTranscript accepts a bare message array or a turn request body.
func readTranscript(path string) ([]transcript.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	var messages []transcript.Message
	if len(data) > 0 && data[0] == '[' {
		err = json.Unmarshal(data, &messages)
	} else {
		var body struct {
			Messages []transcript.Message `json:"messages"`
		}
		err = json.Unmarshal(data, &body)
		messages = body.Messages
	}
	if err != nil {
		return nil, fmt.Errorf("transcript: %w", err)
	}
	return messages, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

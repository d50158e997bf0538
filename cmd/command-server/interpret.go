package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	apperrors "hospitality-commands/internal/common/errors"
	"hospitality-commands/internal/models"
	"hospitality-commands/internal/render"
)

var (
	noFallback bool
	showReply  bool
)

var interpretCmd = &cobra.Command{
	Use:   "interpret [text...]",
	Short: "Interpret a command and print the result as JSON",
	Long: `Runs the matcher and, unless --no-fallback is set, the generative
fallback on the given text. Nothing is recorded and no message is sent.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}
		zapLog, log := newLogger(cfg)
		defer func() { _ = zapLog.Sync() }()

		return runInterpret(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "), interpretDeps{
			build: func(ctx context.Context) (interpreter, error) {
				return buildInterpreter(ctx, cfg, !noFallback, log)
			},
			showReply: showReply,
		})
	},
}

func init() {
	interpretCmd.Flags().BoolVar(&noFallback, "no-fallback", false, "only use the deterministic patterns")
	interpretCmd.Flags().BoolVar(&showReply, "reply", false, "include the rendered reply")
}

type interpreter interface {
	Interpret(ctx context.Context, text string) (*models.Interpretation, error)
}

type interpretDeps struct {
	build     func(ctx context.Context) (interpreter, error)
	showReply bool
}

// runInterpret prints one JSON object. Interpretation failures are part of
// the output, not command errors.
func runInterpret(ctx context.Context, out io.Writer, text string, deps interpretDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	interp, err := deps.build(ctx)
	if err != nil {
		return err
	}

	result := map[string]interface{}{"text": text}
	renderer := render.NewRenderer()
	var reply *render.Message

	parsed, interpErr := interp.Interpret(ctx, text)
	if interpErr != nil {
		stdErr := apperrors.Normalize(interpErr)
		result["error"] = map[string]interface{}{
			"code":    stdErr.Code,
			"message": stdErr.UserMessage(),
			"details": stdErr.Details,
		}
		reply, err = renderer.RenderFailure(stdErr)
	} else {
		result["intent"] = parsed.Payload()
		reply, err = renderer.RenderIntent(parsed.Intent)
	}
	if err != nil {
		return err
	}
	if deps.showReply {
		result["reply"] = reply.Body
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/mercury/internal/cli/output"
	"github.com/leapstack-labs/mercury/pkg/normalize"
	"github.com/spf13/cobra"
)

// NormalizeOutput is one normalized statement in JSON/YAML output.
type NormalizeOutput struct {
	SQL     string `json:"sql" yaml:"sql"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "normalize [sql]...",
		Short: "Show the pattern a SQL statement groups under",
		Long: `Normalize SQL statements the way N+1 detection does: literals and IN lists
become placeholders so that statements differing only in values share a pattern.

Statements are read from the arguments, or one per line from stdin.`,
		Example: `  # Normalize a statement
  mercury normalize "SELECT * FROM users WHERE id = 42"

  # Normalize a file of statements, one per line
  mercury normalize < statements.sql

  # Explore interactively
  mercury normalize --interactive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			n := normalize.New(cmdCtx.Cfg.Normalize)

			if interactive {
				return runNormalizeREPL(cmd, n)
			}

			statements := args
			if len(statements) == 0 {
				var err error
				if statements, err = readStatements(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			return renderNormalized(cmdCtx.Renderer, n, statements)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Start an interactive normalize prompt")
	cmd.Flags().Bool("collapse-whitespace", false, "Fold whitespace into single spaces")
	cmd.Flags().Bool("param-markers", false, "Treat driver parameter markers ($1, %s, :name) as placeholders")

	return cmd
}

// readStatements reads non-empty lines from r.
func readStatements(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read statements: %w", err)
	}
	return out, nil
}

func renderNormalized(r *output.Renderer, n *normalize.Normalizer, statements []string) error {
	switch r.EffectiveMode() {
	case output.ModeJSON, output.ModeYAML:
		out := make([]NormalizeOutput, 0, len(statements))
		for _, s := range statements {
			out = append(out, NormalizeOutput{SQL: s, Pattern: n.Normalize(s)})
		}
		return r.Document(out)
	case output.ModeMarkdown:
		for _, s := range statements {
			r.Printf("- `%s`\n", n.Normalize(s))
		}
	default:
		for _, s := range statements {
			r.Println(n.Normalize(s))
		}
	}
	return nil
}

func runNormalizeREPL(cmd *cobra.Command, n *normalize.Normalizer) error {
	out := cmd.OutOrStdout()

	cfg := &readline.Config{
		Prompt:          "mercury> ",
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          out,
		Stderr:          cmd.ErrOrStderr(),
	}
	if in, ok := cmd.InOrStdin().(io.ReadCloser); ok {
		cfg.Stdin = in
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.HistoryFile = filepath.Join(home, ".mercury_history")
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize prompt: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(out, "mercury normalize. Type .quit to exit")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case ".quit", ".exit":
			return nil
		}
		_, _ = fmt.Fprintln(out, n.Normalize(line))
	}
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/paupaudragon/LiteSheet/internal/style"
	"github.com/paupaudragon/LiteSheet/packages/spreadsheet"
)

const replPrompt = "litesheet> "

const replHelp = `  NAME = CONTENT   set a cell (CONTENT "=A1+1" is a formula)
  NAME =           empty a cell
  NAME             print a cell value
  :show            list every cell
  :deps NAME       show what NAME reads and what reads it
  :save            write the spreadsheet to --file
  :quit            leave (unsaved changes are saved first)`

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Edit the spreadsheet interactively",
	Long: `Start an interactive session on --file.

` + replHelp,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, _ []string) error {
	s, err := openSheet(cmd)
	if err != nil {
		return err
	}
	normalize, err := cfg.Normalizer()
	if err != nil {
		return err
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(nameCompleter(s, normalize))

	historyPath := cfg.Storage.HistoryFile
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(historyPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	session := &replSession{
		sheet: s,
		out:   cmd.OutOrStdout(),
		save:  func() error { return saveSheet(cmd, s) },
	}

	// the session is shared with the signal handler
	var mu sync.Mutex
	sigc := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer func() {
		signal.Stop(sigc)
		close(done)
	}()
	go waitForSignal(sigc, done, func(sig os.Signal) {
		mu.Lock()
		ln.Close()
		if err := session.save(); err != nil {
			logger.Error().Err(err).Str("signal", sig.String()).Msg("saving before exit")
		}
		os.Exit(130)
	})

	fmt.Fprintln(session.out, "type :help for commands")
	for {
		line, err := ln.Prompt(replPrompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(session.out)
			break
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		mu.Lock()
		quit := session.handle(line)
		mu.Unlock()
		if quit {
			break
		}
	}

	mu.Lock()
	defer mu.Unlock()
	return session.save()
}

// waitForSignal runs onSignal for the first signal on sigc, or returns once
// done is closed
func waitForSignal(sigc <-chan os.Signal, done <-chan struct{}, onSignal func(os.Signal)) {
	select {
	case sig := <-sigc:
		onSignal(sig)
	case <-done:
	}
}

// nameCompleter completes the non-empty cell names that start with the
// normalized line
func nameCompleter(s *spreadsheet.Spreadsheet, normalize func(string) string) liner.Completer {
	return func(line string) []string {
		prefix := normalize(line)
		var matches []string
		for _, name := range s.NonEmptyCells() {
			if strings.HasPrefix(name, prefix) {
				matches = append(matches, name)
			}
		}
		return matches
	}
}

// replSession applies REPL lines to a spreadsheet
type replSession struct {
	sheet *spreadsheet.Spreadsheet
	out   io.Writer
	save  func() error
}

// handle runs one line and reports whether the session should end
func (r *replSession) handle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if strings.HasPrefix(line, ":") {
		command, arg, _ := strings.Cut(line, " ")
		switch strings.ToLower(command) {
		case ":quit", ":q":
			return true
		case ":help":
			fmt.Fprintln(r.out, replHelp)
		case ":show":
			printSheet(r.out, r.sheet)
		case ":deps":
			r.deps(strings.TrimSpace(arg))
		case ":save":
			if err := r.save(); err != nil {
				r.fail(err)
				return false
			}
			fmt.Fprintln(r.out, style.Render(style.IsTerminal(r.out), style.Success, "saved"))
		default:
			fmt.Fprintf(r.out, "unknown command %s. Type :help for commands.\n", command)
		}
		return false
	}

	name, content, isEdit := strings.Cut(line, "=")
	name = strings.TrimSpace(name)
	if !isEdit {
		r.print(name)
		return false
	}

	order, err := r.sheet.SetContentsOfCell(name, strings.TrimSpace(content))
	if err != nil {
		r.fail(err)
		return false
	}
	for _, affected := range order {
		value, _ := r.sheet.GetCellValue(affected)
		fmt.Fprintf(r.out, "%s = %s\n", affected, spreadsheet.FormatValue(value))
	}
	return false
}

func (r *replSession) print(name string) {
	value, err := r.sheet.GetCellValue(name)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintln(r.out, spreadsheet.FormatValue(value))
}

func (r *replSession) deps(name string) {
	dependees, err := r.sheet.DirectDependees(name)
	if err != nil {
		r.fail(err)
		return
	}
	dependents, _ := r.sheet.DirectDependents(name)
	fmt.Fprintf(r.out, "reads:   %s\nread by: %s\n", joinOrDash(dependees), joinOrDash(dependents))
}

func (r *replSession) fail(err error) {
	fmt.Fprintln(r.out, style.Render(style.IsTerminal(r.out), style.Error, "error:"), err)
}

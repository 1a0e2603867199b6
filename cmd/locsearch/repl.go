package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/location-search/internal/domain"
	"github.com/couchcryptid/location-search/internal/observability"
	"github.com/couchcryptid/location-search/internal/search"
)

const replHelp = `Type text to search. Other input:
  :N          select suggestion N
  @lat,lng    resolve coordinates
  :current    show the selected location
  :q          quit
`

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Search interactively, one query per line",
	Long: `Reads one line of text at a time and treats it as the new content of a
search box: each line is looked up once, repeated lines are answered from the
cache, and choosing a suggestion replaces the text with its address.

` + replHelp,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(observability.NewLogger, localCacheSize)
		if err != nil {
			return err
		}
		ctrl := a.newController(terminalHandlers())
		defer ctrl.Close()

		r := &repl{ctrl: ctrl, out: os.Stdout, interactive: isTerminal(os.Stdin)}
		return r.run(cmd.Context(), os.Stdin)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

type repl struct {
	ctrl        *search.Controller
	out         io.Writer
	interactive bool
	shown       []domain.Suggestion
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	if r.interactive {
		fmt.Fprint(os.Stderr, replHelp)
	}
	scanner := bufio.NewScanner(in)
	for r.prompt(); scanner.Scan(); r.prompt() {
		line := scanner.Text()
		cmd := strings.TrimSpace(line)
		switch {
		case cmd == ":q" || cmd == ":quit":
			return nil
		case cmd == ":current":
			if loc, ok := r.ctrl.Current(); ok {
				_ = printJSON(r.out, loc)
			} else {
				fmt.Fprintln(r.out, "(no selection)")
			}
		case strings.HasPrefix(cmd, ":"):
			r.choose(ctx, cmd[1:])
		case strings.HasPrefix(cmd, "@"):
			r.reverse(ctx, cmd[1:])
		default:
			r.query(line)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func (r *repl) prompt() {
	if r.interactive {
		fmt.Fprint(os.Stderr, "> ")
	}
}

// query replaces the search text and shows its suggestions once settled.
func (r *repl) query(text string) {
	r.ctrl.SetQuery(text)
	if text == "" {
		r.shown = nil
		return
	}
	stop := startSpinner(text)
	r.ctrl.Wait()
	stop()
	r.show()
}

func (r *repl) show() {
	snap := r.ctrl.Snapshot()
	r.shown = snap.Suggestions
	_ = printSuggestions(r.out, snap.Suggestions)
}

func (r *repl) choose(ctx context.Context, arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(r.shown) {
		fmt.Fprintf(os.Stderr, "no suggestion %q\n", arg)
		return
	}
	r.selectTarget(ctx, r.shown[n-1].Target())
}

func (r *repl) reverse(ctx context.Context, arg string) {
	latStr, lngStr, ok := strings.Cut(arg, ",")
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if !ok || errLat != nil || errLng != nil {
		fmt.Fprintf(os.Stderr, "invalid coordinates %q, want @lat,lng\n", arg)
		return
	}
	t := domain.CoordinateTarget(lat, lng)
	if err := t.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	r.selectTarget(ctx, t)
}

// selectTarget resolves t, prints the location and adopts it as the current
// selection, which also makes its address the search text.
func (r *repl) selectTarget(ctx context.Context, t domain.Target) {
	stop := startSpinner(t.String())
	loc, err := r.ctrl.Select(ctx, t)
	stop()
	if err != nil {
		if errors.Is(err, search.ErrClosed) {
			fmt.Fprintln(os.Stderr, err)
		}
		return
	}
	_ = printJSON(r.out, loc)

	r.ctrl.Sync(loc)
	if loc.FormattedAddress == "" {
		return
	}
	fmt.Fprintf(r.out, "query: %s\n", loc.FormattedAddress)
	r.ctrl.Wait()
	r.show()
}

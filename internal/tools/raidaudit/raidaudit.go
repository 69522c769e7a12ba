// Package raidaudit prints raid audit files as plain JSON lines or as a
// per-map summary.
package raidaudit

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/audit"
)

// Config holds configuration for the audit reader.
type Config struct {
	Dir      string
	Files    []string
	PlayerID string
	RaidID   string
	Summary  bool
}

// ParseConfig parses flags into a Config. Positional arguments name files;
// without them every file in -dir is read in name order.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Dir: filepath.Join("data", "audit")}
	if dir := os.Getenv("THRONE_OF_DUST_AUDIT_DIR"); dir != "" {
		cfg.Dir = dir
	}
	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "audit directory")
	fs.StringVar(&cfg.PlayerID, "player", "", "only records for this player id")
	fs.StringVar(&cfg.RaidID, "raid", "", "only the record for this raid id")
	fs.BoolVar(&cfg.Summary, "summary", false, "print per-map totals instead of records")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Files = fs.Args()
	return cfg, nil
}

type mapTotals struct {
	raids      int
	successes  int
	gold       int
	scrap      int
	casualties int
}

// Run decodes the configured files and writes the result to out.
func Run(cfg Config, out io.Writer) error {
	if out == nil {
		return errors.New("output is required")
	}
	files := cfg.Files
	if len(files) == 0 {
		matches, err := filepath.Glob(filepath.Join(cfg.Dir, audit.FilePrefix+"-*.jsonl.zst"))
		if err != nil {
			return fmt.Errorf("list audit files: %w", err)
		}
		sort.Strings(matches)
		files = matches
	}
	if len(files) == 0 {
		return fmt.Errorf("no audit files in %s", cfg.Dir)
	}

	enc := json.NewEncoder(out)
	totals := make(map[string]*mapTotals)
	visit := func(rec audit.Record) error {
		if cfg.PlayerID != "" && rec.PlayerID != cfg.PlayerID {
			return nil
		}
		if cfg.RaidID != "" && rec.RaidID != cfg.RaidID {
			return nil
		}
		if !cfg.Summary {
			return enc.Encode(rec)
		}
		t, ok := totals[string(rec.Map)]
		if !ok {
			t = &mapTotals{}
			totals[string(rec.Map)] = t
		}
		t.raids++
		if rec.Outcome.Success {
			t.successes++
		}
		t.gold += rec.Credited.Gold
		t.scrap += rec.Credited.Scrap
		t.casualties += rec.Outcome.Casualties
		return nil
	}

	for _, path := range files {
		if err := decodeFile(path, visit); err != nil {
			return err
		}
	}
	if cfg.Summary {
		return writeSummary(out, totals)
	}
	return nil
}

func decodeFile(path string, fn func(audit.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := audit.Decode(f, fn); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func writeSummary(out io.Writer, totals map[string]*mapTotals) error {
	maps := make([]string, 0, len(totals))
	for m := range totals {
		maps = append(maps, m)
	}
	sort.Strings(maps)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MAP\tRAIDS\tSUCCESS\tGOLD\tSCRAP\tCASUALTIES")
	for _, m := range maps {
		t := totals[m]
		rate := float64(t.successes) / float64(t.raids) * 100
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%d\t%d\t%d\n", m, t.raids, rate, t.gold, t.scrap, t.casualties)
	}
	return tw.Flush()
}

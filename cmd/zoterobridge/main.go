package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	flag "github.com/spf13/pflag"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/Combjellyshen/ZoteroBridge/internal/config"
	"github.com/Combjellyshen/ZoteroBridge/internal/library"
	"github.com/Combjellyshen/ZoteroBridge/internal/session"
)

const usage = `Usage: zoterobridge [flags] <command> [args]

Commands:
  check              probe database integrity and validate attachments
  search <query>     fulltext search with context snippets
  dupes <field>      list duplicate groups (field: title|doi|isbn)
  similar <itemID>   list items sharing tags with the given item
  orphans [--delete] list (or delete) attachments missing on disk

Flags:
      --db string         database file (default <data-dir>/zotero.sqlite)
      --data-dir string   Zotero data directory (default ~/Zotero)
      --config string     config file (default ~/.config/zoterobridge/config.json)
  -r, --read-only         disable the save path entirely
  -h, --help              print usage
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	flags := flag.NewFlagSet("zoterobridge", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	dbPath := flags.String("db", "", "database file")
	dataDir := flags.String("data-dir", "", "Zotero data directory")
	configPath := flags.String("config", "", "config file")
	readOnly := flags.BoolP("read-only", "r", false, "disable the save path")
	help := flags.BoolP("help", "h", false, "print usage")

	if err := flags.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		fmt.Fprint(errOut, usage)
		return 1
	}
	if *help || flags.NArg() == 0 {
		fmt.Fprint(out, usage)
		return 0
	}

	setupLogging()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
		cfg.DatabasePath = filepath.Join(*dataDir, "zotero.sqlite")
		cfg.BackupDir = *dataDir
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *readOnly {
		cfg.ReadOnly = true
	}

	sess, err := session.Connect(session.Options{
		DBPath:       cfg.DatabasePath,
		DataDir:      cfg.DataDir,
		BackupDir:    cfg.BackupDir,
		ProcessNames: cfg.ProcessNames,
		ReadOnly:     cfg.ReadOnly,
	})
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Printf("close failed: %v", err)
		}
	}()

	command := flags.Arg(0)
	rest := flags.Args()[1:]

	switch command {
	case "check":
		return cmdCheck(sess, out, errOut)
	case "search":
		return cmdSearch(sess, out, errOut, rest)
	case "dupes":
		return cmdDupes(sess, out, errOut, rest)
	case "similar":
		return cmdSimilar(sess, out, errOut, rest)
	case "orphans":
		return cmdOrphans(sess, out, errOut, rest)
	default:
		fmt.Fprintf(errOut, "error: unknown command %q\n", command)
		fmt.Fprint(errOut, usage)
		return 1
	}
}

func setupLogging() {
	commonlog.Configure(1, nil)

	logsDir := filepath.Join(os.TempDir(), "zoterobridge")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		log.SetOutput(os.Stderr)
		return
	}

	logFile, err := os.OpenFile(
		filepath.Join(logsDir, "zoterobridge.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0o666,
	)
	if err != nil {
		log.SetOutput(os.Stderr)
		return
	}

	log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
}

func cmdCheck(sess *session.Session, out, errOut io.Writer) int {
	if err := sess.DB().Probe(); err != nil {
		fmt.Fprintln(errOut, "integrity:", err)
		return 1
	}
	fmt.Fprintln(out, "integrity: ok")

	orphans, err := library.ValidateAttachments(sess)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	fmt.Fprintf(out, "attachments: %d missing\n", len(orphans))
	for _, o := range orphans {
		fmt.Fprintf(out, "  %d\t%s\t%s\n", o.Attachment.ItemID, o.Reason, o.Attachment.Path)
	}
	return 0
}

func cmdSearch(sess *session.Session, out, errOut io.Writer, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: search requires a query")
		return 1
	}

	matches, err := library.SearchFulltextWithContext(sess, args[0], 1, 80)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	for _, m := range matches {
		fmt.Fprintf(out, "%s\t%s\n", m.AttachmentKey, m.Title)
		if m.Context != "" {
			fmt.Fprintf(out, "  %s\n", m.Context)
		}
	}
	fmt.Fprintf(out, "%d match(es)\n", len(matches))
	return 0
}

func cmdDupes(sess *session.Session, out, errOut io.Writer, args []string) int {
	field := "title"
	if len(args) > 0 {
		field = args[0]
	}

	groups, err := library.FindDuplicates(sess, field)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	for _, g := range groups {
		fmt.Fprintf(out, "%dx\t%s\t%v\n", g.Count, g.Value, g.ItemIDs)
	}
	fmt.Fprintf(out, "%d duplicate group(s)\n", len(groups))
	return 0
}

func cmdSimilar(sess *session.Session, out, errOut io.Writer, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: similar requires an item ID")
		return 1
	}
	itemID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(errOut, "error: invalid item ID %q\n", args[0])
		return 1
	}

	similar, err := library.FindSimilarByTags(sess, itemID, 1)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	for _, s := range similar {
		fmt.Fprintf(out, "%d\t%d shared\t%s\n", s.ItemID, s.SharedCount, s.Title)
	}
	return 0
}

func cmdOrphans(sess *session.Session, out, errOut io.Writer, args []string) int {
	flags := flag.NewFlagSet("orphans", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	del := flags.Bool("delete", false, "delete orphaned rows")
	if err := flags.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	result, err := library.DeleteOrphanAttachments(sess, !*del)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	for _, o := range result.Orphans {
		fmt.Fprintf(out, "%d\t%s\t%s\n", o.Attachment.ItemID, o.Reason, o.Attachment.Path)
	}
	if *del {
		fmt.Fprintf(out, "deleted %d of %d orphan(s)\n", result.Deleted, len(result.Orphans))
		for _, e := range result.Errors {
			fmt.Fprintln(errOut, "error:", e)
		}
		if err := sess.Save(); err != nil {
			fmt.Fprintln(errOut, "save failed:", err)
			return 1
		}
	} else {
		fmt.Fprintf(out, "%d orphan(s) (dry run, nothing deleted)\n", len(result.Orphans))
	}
	return 0
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/goydb/forest/pkg/enum"
	"github.com/goydb/forest/pkg/forest"
	"github.com/goydb/forest/pkg/model"
	"github.com/goydb/forest/pkg/port"
	"github.com/spf13/cobra"
)

// jsonOut switches document output to one JSON object per line.
var jsonOut bool

func main() {
	cfg, err := forest.NewConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *forest.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "forest",
		Short:         "Sequence indexed document store",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.InitLogger()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfg.Path, "db", cfg.Path, "database path, a file for bbolt, a directory for leveldb")
	pf.StringVar(&cfg.Engine, "engine", cfg.Engine, "storage engine, bbolt or leveldb")
	pf.StringVar(&cfg.Store, "store", cfg.Store, "key store to operate on")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	pf.BoolVar(&jsonOut, "json", false, "print one JSON object per line")

	cmd.AddCommand(
		newPutCmd(cfg),
		newGetCmd(cfg),
		newDelCmd(cfg),
		newScanCmd(cfg),
		newChangesCmd(cfg),
		newDocsCmd(cfg),
		newInfoCmd(cfg),
	)
	return cmd
}

// withStore opens the configured engine around one operation.
func withStore(cfg *forest.Config, fn func(ks port.KeyStore) error) error {
	db, err := cfg.Open()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db.KeyStore(cfg.Store))
}

func newPutCmd(cfg *forest.Config) *cobra.Command {
	var meta string
	cmd := &cobra.Command{
		Use:   "put <id> [body]",
		Short: "Store a document, the body is read from stdin if omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body []byte
			if len(args) == 2 {
				body = []byte(args[1])
			} else {
				var err error
				body, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			return withStore(cfg, func(ks port.KeyStore) error {
				doc := &model.Document{ID: args[0], Body: body}
				if meta != "" {
					doc.Meta = []byte(meta)
				}
				seq, err := ks.Put(doc)
				if err != nil {
					return err
				}
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(docLine{ID: doc.ID, Seq: uint64(seq)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s seq=%d\n", doc.ID, seq)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&meta, "meta", "", "metadata stored alongside the body")
	return cmd
}

func newGetCmd(cfg *forest.Config) *cobra.Command {
	var metaOnly bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print the body of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := model.DefaultContent
			if metaOnly {
				content = model.MetaOnly
			}
			return withStore(cfg, func(ks port.KeyStore) error {
				doc, err := ks.Get([]byte(args[0]), content)
				if err != nil {
					return err
				}
				if metaOnly {
					return printDoc(cmd.OutOrStdout(), doc)
				}
				_, err = cmd.OutOrStdout().Write(doc.Body)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&metaOnly, "meta-only", false, "print metadata and stats instead of the body")
	return cmd
}

func newDelCmd(cfg *forest.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "del <id>",
		Short: "Replace a document with a tombstone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(ks port.KeyStore) error {
				seq, err := ks.Delete([]byte(args[0]))
				if err != nil {
					return err
				}
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(docLine{ID: args[0], Seq: uint64(seq), Deleted: true})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s seq=%d deleted\n", args[0], seq)
				return nil
			})
		},
	}
}

func newScanCmd(cfg *forest.Config) *cobra.Command {
	opts := model.DefaultEnumeratorOptions
	var exclusiveStart, exclusiveEnd, metaOnly bool
	var limit uint64

	cmd := &cobra.Command{
		Use:   "scan [start [end]]",
		Short: "Enumerate documents by key range",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var start, end []byte
			if len(args) > 0 {
				start = []byte(args[0])
			}
			if len(args) > 1 {
				end = []byte(args[1])
			}
			opts.InclusiveStart = !exclusiveStart
			opts.InclusiveEnd = !exclusiveEnd
			if limit > 0 {
				opts.Limit = limit
			}
			if metaOnly {
				opts.Content = model.MetaOnly
			}
			return withStore(cfg, func(ks port.KeyStore) error {
				e, err := enum.NewKeyRange(ks, start, end, opts)
				if err != nil {
					return err
				}
				defer e.Close()
				return printAll(cmd.OutOrStdout(), e)
			})
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.Descending, "descending", false, "enumerate from start down to end")
	f.Uint64Var(&opts.Skip, "skip", 0, "documents to step over before the first result")
	f.Uint64Var(&limit, "limit", 0, "stop after this many documents, 0 means all")
	f.BoolVar(&exclusiveStart, "exclusive-start", false, "leave out the document at the start bound")
	f.BoolVar(&exclusiveEnd, "exclusive-end", false, "leave out the document at the end bound")
	f.BoolVar(&opts.IncludeDeleted, "deleted", false, "surface tombstones")
	f.BoolVar(&metaOnly, "meta-only", false, "do not fetch document bodies")
	return cmd
}

func newChangesCmd(cfg *forest.Config) *cobra.Command {
	opts := model.DefaultEnumeratorOptions
	opts.IncludeDeleted = true
	opts.Content = model.MetaOnly
	var limit uint64

	cmd := &cobra.Command{
		Use:   "changes [since]",
		Short: "Enumerate documents changed after a sequence",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var since uint64
			if len(args) == 1 {
				var err error
				since, err = strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("parse since: %w", err)
				}
			}
			opts.InclusiveStart = false
			if limit > 0 {
				opts.Limit = limit
			}
			return withStore(cfg, func(ks port.KeyStore) error {
				e, err := enum.NewSequenceRange(ks, model.Sequence(since), model.MaxSequence, opts)
				if err != nil {
					return err
				}
				defer e.Close()
				return printAll(cmd.OutOrStdout(), e)
			})
		},
	}
	cmd.Flags().Uint64Var(&limit, "limit", 0, "stop after this many changes, 0 means all")
	return cmd
}

func newDocsCmd(cfg *forest.Config) *cobra.Command {
	opts := model.DefaultEnumeratorOptions
	opts.Content = model.MetaOnly

	return &cobra.Command{
		Use:   "docs <id>...",
		Short: "Look up documents by their IDs, in the given order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(ks port.KeyStore) error {
				e := enum.NewDocIDs(ks, args, opts)
				defer e.Close()
				return printAll(cmd.OutOrStdout(), e)
			})
		},
	}
}

func newInfoCmd(cfg *forest.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print document count and last sequence of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(ks port.KeyStore) error {
				n, err := ks.Count()
				if err != nil {
					return err
				}
				seq, err := ks.LastSequence()
				if err != nil {
					return err
				}
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(struct {
						Store        string `json:"store"`
						Documents    uint64 `json:"documents"`
						LastSequence uint64 `json:"last_sequence"`
					}{cfg.Store, n, uint64(seq)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "store: %s\ndocuments: %d\nlast sequence: %d\n",
					cfg.Store, n, seq)
				return nil
			})
		},
	}
}

func printAll(w io.Writer, e *enum.DocEnumerator) error {
	for {
		ok, err := e.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := printDoc(w, e.Document()); err != nil {
			return err
		}
	}
}

// docLine is the JSON shape of one enumerated document.
type docLine struct {
	ID      string `json:"id"`
	Seq     uint64 `json:"seq,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
	Size    uint64 `json:"size,omitempty"`
	Meta    string `json:"meta,omitempty"`
	Missing bool   `json:"missing,omitempty"`
}

func printDoc(w io.Writer, doc *model.Document) error {
	if jsonOut {
		return json.NewEncoder(w).Encode(docLine{
			ID:      doc.ID,
			Seq:     uint64(doc.Sequence),
			Deleted: doc.Deleted,
			Size:    doc.BodySize,
			Meta:    string(doc.Meta),
			Missing: !doc.Exists(),
		})
	}
	if !doc.Exists() {
		fmt.Fprintf(w, "%s missing\n", doc.ID)
		return nil
	}
	fmt.Fprintf(w, "%s seq=%d size=%d", doc.ID, doc.Sequence, doc.BodySize)
	if doc.Deleted {
		fmt.Fprint(w, " deleted")
	}
	if len(doc.Meta) > 0 {
		fmt.Fprintf(w, " meta=%s", doc.Meta)
	}
	fmt.Fprintln(w)
	return nil
}

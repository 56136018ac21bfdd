package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/iParadigms/seeker"
	"github.com/iParadigms/seeker/frontier"
	"github.com/iParadigms/seeker/index"
	"github.com/iParadigms/seeker/webgraph"
)

// run builds the command tree fresh on every invocation (no package-level
// commander singleton) and returns the process exit code per the taxonomy:
// 0 success, 1 user error, 2 data corruption, 3 transient I/O.
func run(args []string) int {
	var exitCode int
	root := &cobra.Command{
		Use:           "seekerctl",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(indexCmd(), webgraphCmd(), frontierCmd())
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "seekerctl:", err)
		exitCode = classifyError(err)
	}
	return exitCode
}

func classifyError(err error) int {
	var se *seeker.Error
	if e, ok := err.(*seeker.Error); ok {
		se = e
	} else {
		return 1
	}
	switch se.Kind {
	case seeker.KindConsistency:
		return 2
	case seeker.KindIO:
		return 3
	default:
		return 1
	}
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "index", Short: "manage an inverted index"}

	cmd.AddCommand(&cobra.Command{
		Use:   "open <path>",
		Short: "open or create an index at path",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg := seeker.DefaultConfig()
			idx, err := index.Open(args[0], cfg)
			if err != nil {
				return err
			}
			_ = idx
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "commit <path>",
		Short: "insert newline-delimited JSON documents from stdin and commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg := seeker.DefaultConfig()
			idx, err := index.Open(args[0], cfg)
			if err != nil {
				return err
			}
			sc := bufio.NewScanner(os.Stdin)
			sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
			for sc.Scan() {
				var d seeker.Document
				if err := json.Unmarshal(sc.Bytes(), &d); err != nil {
					return seeker.Errf("seekerctl.index.commit", seeker.KindInput, err)
				}
				idx.Insert(&d)
			}
			return idx.Commit()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "merge <src> <dst>",
		Short: "merge src's committed segments into dst",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg := seeker.DefaultConfig()
			idx, err := index.Open(args[1], cfg)
			if err != nil {
				return err
			}
			return idx.Merge(args[0])
		},
	})

	var maxSegments int
	optimize := &cobra.Command{
		Use:   "optimize <path>",
		Short: "bin-pack segments down to --max-segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg := seeker.DefaultConfig()
			idx, err := index.Open(args[0], cfg)
			if err != nil {
				return err
			}
			return idx.MergeIntoMaxSegments(maxSegments)
		},
	}
	optimize.Flags().IntVar(&maxSegments, "max-segments", 1, "target segment count")
	cmd.AddCommand(optimize)

	return cmd
}

// edgeJSON is the newline-delimited input shape webgraph build consumes.
type edgeJSON struct {
	FromURL string `json:"from_url"`
	ToURL   string `json:"to_url"`
	Label   string `json:"label"`
	Flags   uint32 `json:"rel_flags"`
}

func webgraphCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "webgraph", Short: "manage a link graph"}

	cmd.AddCommand(&cobra.Command{
		Use:   "build <path>",
		Short: "insert newline-delimited JSON edges from stdin and commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			g, err := webgraph.Open(args[0])
			if err != nil {
				return err
			}
			defer g.Close()

			sc := bufio.NewScanner(os.Stdin)
			sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
			for sc.Scan() {
				var e edgeJSON
				if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
					return seeker.Errf("seekerctl.webgraph.build", seeker.KindInput, err)
				}
				from, to := webgraph.NewNode(e.FromURL), webgraph.NewNode(e.ToURL)
				if err := g.InsertEdge(from, to, e.Label, webgraph.RelFlags(e.Flags)); err != nil {
					return err
				}
			}
			return g.Commit()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "merge <src> <dst>",
		Short: "merge src's segments into dst",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			g, err := webgraph.Open(args[1])
			if err != nil {
				return err
			}
			defer g.Close()
			return g.MergeFrom(args[0])
		},
	})

	var inNode, outNode string
	query := &cobra.Command{
		Use:   "query <path>",
		Short: "print outgoing or ingoing edges for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			g, err := webgraph.Open(args[0])
			if err != nil {
				return err
			}
			defer g.Close()

			var target string
			var outgoing bool
			switch {
			case outNode != "":
				target, outgoing = outNode, true
			case inNode != "":
				target, outgoing = inNode, false
			default:
				return seeker.Errf("seekerctl.webgraph.query", seeker.KindInput, errMissingNodeFlag)
			}
			if _, err := url.Parse(target); err != nil {
				return seeker.Errf("seekerctl.webgraph.query", seeker.KindInput, err)
			}

			id := webgraph.NewNode(target).ID()
			r := g.Reader()
			var edges []webgraph.Edge
			if outgoing {
				edges, err = r.OutgoingEdges(c.Context(), id, webgraph.Unlimited())
			} else {
				edges, err = r.IngoingEdges(c.Context(), id, webgraph.Unlimited())
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			for _, e := range edges {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		},
	}
	query.Flags().StringVar(&inNode, "in", "", "print edges pointing to this URL")
	query.Flags().StringVar(&outNode, "out", "", "print edges leaving this URL")
	cmd.AddCommand(query)

	return cmd
}

var errMissingNodeFlag = fmt.Errorf("one of --in or --out is required")

func frontierCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "frontier", Short: "manage the crawl frontier"}

	var seedsPath string
	initCmd := &cobra.Command{
		Use:   "init <db-path>",
		Short: "load seed URLs into a fresh frontier database",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if seedsPath == "" {
				return seeker.Errf("seekerctl.frontier.init", seeker.KindInput, errMissingSeeds)
			}
			store, err := frontier.Open(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Open(seedsPath)
			if err != nil {
				return seeker.Errf("seekerctl.frontier.init", seeker.KindInput, err)
			}
			defer f.Close()

			var urls []frontier.URLDomain
			sc := bufio.NewScanner(f)
			for sc.Scan() {
				line := sc.Text()
				if line == "" {
					continue
				}
				u, err := url.Parse(line)
				if err != nil {
					return seeker.Errf("seekerctl.frontier.init", seeker.KindInput, err)
				}
				urls = append(urls, frontier.URLDomain{URL: line, Domain: u.Hostname()})
			}
			return store.InsertSeedURLs(urls)
		},
	}
	initCmd.Flags().StringVar(&seedsPath, "seeds", "", "path to a file of newline-delimited seed URLs")
	cmd.AddCommand(initCmd)

	var n, urlsPerJob int
	sample := &cobra.Command{
		Use:   "sample <db-path>",
		Short: "sample domains and prepare crawl jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := frontier.Open(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			domains, err := store.SampleDomains(n)
			if err != nil {
				return err
			}
			jobs, err := store.PrepareJobs(domains, urlsPerJob)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			for _, j := range jobs {
				if err := enc.Encode(j); err != nil {
					return err
				}
			}
			return nil
		},
	}
	sample.Flags().IntVar(&n, "n", 10, "number of domains to sample")
	sample.Flags().IntVar(&urlsPerJob, "urls-per-job", 50, "URLs to claim per domain")
	cmd.AddCommand(sample)

	return cmd
}

var errMissingSeeds = fmt.Errorf("--seeds is required")

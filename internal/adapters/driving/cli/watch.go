package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aegis/internal/connectors/filesystem"
	"github.com/custodia-labs/aegis/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest documents dropped into a directory",
	Long: `Watches a directory and ingests every file created or written in it.
A file written again after ingestion is stored as a new version of the
document it produced earlier. Deleted files leave their documents in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchOwner    string
	watchExisting bool
	watchAnalyze  bool
)

func init() {
	watchCmd.Flags().StringVar(&watchOwner, "owner", "", "owner ID for ingested documents")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "ingest files already in the directory first")
	watchCmd.Flags().BoolVar(&watchAnalyze, "analyze", false, "run the analysis pipeline after each ingestion")
	rootCmd.AddCommand(watchCmd)
}

// inbox ingests watcher changes and remembers the latest document per path.
type inbox struct {
	cmd    *cobra.Command
	owner  string
	latest map[string]string
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}
	if watchAnalyze && orchestrator == nil {
		return errors.New("analysis pipeline not configured")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w := filesystem.New(args[0])
	defer w.Close()

	box := &inbox{cmd: cmd, owner: watchOwner, latest: make(map[string]string)}

	if watchExisting {
		existing, err := w.Existing()
		if err != nil {
			return err
		}
		for _, c := range existing {
			box.handle(ctx, c)
		}
	}

	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s. Press Ctrl+C to stop.\n", w.Root())

	for c := range changes {
		box.handle(ctx, c)
	}
	return nil
}

func (b *inbox) handle(ctx context.Context, c filesystem.Change) {
	name := filepath.Base(c.Path)
	if c.Type == filesystem.ChangeDeleted {
		logger.Info("%s removed; its documents are kept", name)
		return
	}

	req, err := buildIngestRequest(c.Path, b.owner, c.MIMEType)
	if err != nil {
		b.cmd.Println(errorStyle.Render(fmt.Sprintf("%s: %v", name, err)))
		return
	}
	if prev, ok := b.latest[c.Path]; ok {
		req.ParentDocumentID = optional(prev)
	}

	result, err := ingestionService.Ingest(ctx, req)
	if err != nil {
		b.cmd.Println(errorStyle.Render(fmt.Sprintf("%s: %v", name, err)))
		return
	}
	doc := result.Document
	b.latest[c.Path] = doc.ID
	b.cmd.Printf("%s  %s v%d  %s\n", doc.ID, name, doc.VersionNumber, riskBadge(doc.RiskLevel))

	if watchAnalyze {
		printPipeline(b.cmd, orchestrator.Run(ctx, doc.ID))
	}
}

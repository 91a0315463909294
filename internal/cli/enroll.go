package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/binarypay/internal/models"
	"github.com/mmynk/binarypay/internal/report"
)

// EnrollOptions holds flags for the enroll command.
type EnrollOptions struct {
	*RootOptions
	ID       string
	Name     string
	Parent   string
	Side     string
	Sponsor  string
	JoinedOn string
}

// NewEnrollCommand creates the enroll command.
func NewEnrollCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EnrollOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Place a new participant in the tree",
		Long: `Place a participant under a parent on the left or right leg.
Omit --parent to create the root.

Example:
  binarypay enroll --name root
  binarypay enroll --name alice --parent <root-id> --side left --sponsor <root-id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return enroll(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "participant id (default: generated)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&opts.Parent, "parent", "", "placement parent id")
	cmd.Flags().StringVar(&opts.Side, "side", "", "leg under the parent (left|right)")
	cmd.Flags().StringVar(&opts.Sponsor, "sponsor", "", "sponsor id")
	cmd.Flags().StringVar(&opts.JoinedOn, "joined", "", "join date YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func enroll(cmd *cobra.Command, opts *EnrollOptions) error {
	ctx := cmd.Context()
	joined, err := parseDay(opts.JoinedOn)
	if err != nil {
		return err
	}

	p := &models.Participant{
		ID:        opts.ID,
		Name:      opts.Name,
		ParentID:  opts.Parent,
		SponsorID: opts.Sponsor,
		JoinedOn:  joined,
		Active:    true,
	}
	if opts.Parent != "" {
		side, err := models.ParseSide(opts.Side)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --side", err)
		}
		p.Side = side
	}

	store, err := openStore(ctx, opts.Config)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.CreateParticipant(ctx, p); err != nil {
		return WrapExitError(ExitFailure, "failed to enroll participant", err)
	}

	if opts.Format == "json" {
		return report.WriteJSON(cmd.OutOrStdout(), report.NewParticipant(p))
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "enrolled %s (%s)\n", p.Name, p.ID)
	return err
}

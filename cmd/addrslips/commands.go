package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/addrslips-core/internal/project"
)

type areaView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	State string `json:"state"`
	Image string `json:"image"`
}

type infoView struct {
	Name               string     `json:"name"`
	CreatedAt          time.Time  `json:"created_at"`
	TargetAddressCount uint64     `json:"target_address_count"`
	Areas              []areaView `json:"areas"`
}

type teamAddressView struct {
	AddressID   int64   `json:"address_id"`
	Street      *string `json:"street,omitempty"`
	HouseNumber string  `json:"house_number"`
}

type teamView struct {
	TeamID    int64             `json:"team_id"`
	Number    uint16            `json:"number"`
	Addresses []teamAddressView `json:"addresses"`
}

func toAreaView(a project.Area) areaView {
	return areaView{
		ID:    a.ID,
		Name:  a.Name,
		Color: a.Color.Hex(),
		State: a.State.String(),
		Image: a.ImageName,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newInfoCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info [project]",
		Short: "Show project settings and areas",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.projectPath(args)
			if err != nil {
				return err
			}
			return opts.withProject(cmd.Context(), path, false, func(p *project.Project) error {
				settings, err := p.Settings(cmd.Context())
				if err != nil {
					return err
				}
				areas, err := p.Areas(cmd.Context())
				if err != nil {
					return err
				}

				view := infoView{
					Name:               settings.Name,
					CreatedAt:          settings.CreatedAt,
					TargetAddressCount: settings.TargetAddressCount,
					Areas:              make([]areaView, 0, len(areas)),
				}
				for _, a := range areas {
					view.Areas = append(view.Areas, toAreaView(a))
				}
				return writeInfo(cmd.OutOrStdout(), opts.Format, view)
			})
		},
	}
}

func writeInfo(w io.Writer, format string, v infoView) error {
	if format == "json" {
		return writeJSON(w, v)
	}
	fmt.Fprintf(w, "Name:    %s\n", v.Name)
	fmt.Fprintf(w, "Created: %s\n", v.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Target:  %d addresses\n", v.TargetAddressCount)
	fmt.Fprintf(w, "Areas:   %d\n", len(v.Areas))
	for _, a := range v.Areas {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\n", a.ID, a.Name, a.Color, a.State)
	}
	return nil
}

func newInitCommand(opts *rootOptions) *cobra.Command {
	var name string
	var target uint64

	cmd := &cobra.Command{
		Use:   "init [project]",
		Short: "Create a project archive or update its settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.projectPath(args)
			if err != nil {
				return err
			}
			return opts.withProject(cmd.Context(), path, true, func(p *project.Project) error {
				var u project.SettingsUpdate
				if cmd.Flags().Changed("name") {
					u.Name = &name
				}
				if cmd.Flags().Changed("target") {
					u.TargetAddressCount = &target
				}
				if err := p.UpdateSettings(cmd.Context(), u); err != nil {
					return err
				}
				opts.log.Info("project initialised", "path", p.Path())
				fmt.Fprintln(cmd.OutOrStdout(), p.Path())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name (defaults to the file name)")
	cmd.Flags().Uint64Var(&target, "target", 0, "target address count")
	return cmd
}

func newAddAreaCommand(opts *rootOptions) *cobra.Command {
	var name, color, imagePath string

	cmd := &cobra.Command{
		Use:   "add-area [project]",
		Short: "Import a map image as a new area",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.projectPath(args)
			if err != nil {
				return err
			}
			c, err := project.ParseHexColor(color)
			if err != nil {
				return err
			}
			return opts.withProject(cmd.Context(), path, true, func(p *project.Project) error {
				a, err := p.AddArea(cmd.Context(), project.NewArea{Name: name, Color: c, ImagePath: imagePath})
				if err != nil {
					return err
				}
				area, err := a.Get(cmd.Context())
				if err != nil {
					return err
				}
				return writeArea(cmd.OutOrStdout(), opts.Format, toAreaView(area))
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "area name")
	cmd.Flags().StringVar(&color, "color", "#3388ff", "area color as #rrggbb")
	cmd.Flags().StringVar(&imagePath, "image", "", "map image (PNG, JPEG, GIF, BMP, TIFF or WebP)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func newSetStateCommand(opts *rootOptions) *cobra.Command {
	var areaID int64
	var stateName string

	cmd := &cobra.Command{
		Use:   "set-state [project]",
		Short: "Set the workflow state of an area",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.projectPath(args)
			if err != nil {
				return err
			}
			state, err := project.ParseAreaState(stateName)
			if err != nil {
				return err
			}
			return opts.withProject(cmd.Context(), path, true, func(p *project.Project) error {
				a, err := p.OpenArea(cmd.Context(), areaID)
				if err != nil {
					return err
				}
				area, err := a.SetState(cmd.Context(), state)
				if err != nil {
					return err
				}
				return writeArea(cmd.OutOrStdout(), opts.Format, toAreaView(area))
			})
		},
	}
	cmd.Flags().Int64Var(&areaID, "area", 0, "area ID")
	cmd.Flags().StringVar(&stateName, "state", "", "state name, e.g. addresses_detected")
	_ = cmd.MarkFlagRequired("area")
	_ = cmd.MarkFlagRequired("state")
	return cmd
}

func writeArea(w io.Writer, format string, a areaView) error {
	if format == "json" {
		return writeJSON(w, a)
	}
	_, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Color, a.State, a.Image)
	return err
}

func newTeamsCommand(opts *rootOptions) *cobra.Command {
	var areaID int64

	cmd := &cobra.Command{
		Use:   "teams [project]",
		Short: "List each team of an area with its addresses",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.projectPath(args)
			if err != nil {
				return err
			}
			return opts.withProject(cmd.Context(), path, false, func(p *project.Project) error {
				a, err := p.OpenArea(cmd.Context(), areaID)
				if err != nil {
					return err
				}
				teams, err := a.Teams(cmd.Context())
				if err != nil {
					return err
				}
				byTeam, err := a.AllTeamAddresses(cmd.Context())
				if err != nil {
					return err
				}
				return writeTeams(cmd.OutOrStdout(), opts.Format, buildTeamViews(teams, byTeam))
			})
		},
	}
	cmd.Flags().Int64Var(&areaID, "area", 0, "area ID")
	_ = cmd.MarkFlagRequired("area")
	return cmd
}

func buildTeamViews(teams []project.Team, byTeam map[int64][]project.TeamAddress) []teamView {
	views := make([]teamView, 0, len(teams))
	for _, t := range teams {
		v := teamView{TeamID: t.ID, Number: t.Number, Addresses: []teamAddressView{}}
		for _, ta := range byTeam[t.ID] {
			v.Addresses = append(v.Addresses, teamAddressView{
				AddressID:   ta.AddressID,
				Street:      ta.StreetName,
				HouseNumber: ta.HouseNumber,
			})
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Number < views[j].Number })
	return views
}

func writeTeams(w io.Writer, format string, teams []teamView) error {
	if format == "json" {
		return writeJSON(w, teams)
	}
	for _, t := range teams {
		fmt.Fprintf(w, "Team %d (%d addresses)\n", t.Number, len(t.Addresses))
		for _, a := range t.Addresses {
			street := "(no street)"
			if a.Street != nil {
				street = *a.Street
			}
			fmt.Fprintf(w, "  %s %s\n", a.HouseNumber, street)
		}
	}
	return nil
}

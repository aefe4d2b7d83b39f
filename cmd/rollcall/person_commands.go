package main

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rollcall/internal/config"
	"rollcall/internal/recognizer"
	"rollcall/internal/store"
	"rollcall/internal/vision"
)

func newPersonCommand(ctx *commandContext) *cobra.Command {
	personCmd := &cobra.Command{
		Use:   "person",
		Short: "Manage the registered roster",
	}

	personCmd.AddCommand(newPersonAddCommand(ctx))
	personCmd.AddCommand(newPersonListCommand(ctx))
	personCmd.AddCommand(newPersonRemoveCommand(ctx))
	personCmd.AddCommand(newPersonAddFaceCommand(ctx))

	return personCmd
}

func newPersonAddCommand(ctx *commandContext) *cobra.Command {
	var (
		name         string
		category     string
		phone        string
		department   string
		compensation string
		monthly      float64
		deduction    float64
		rate         float64
	)

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Register a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			person := store.Person{
				ID:         strings.TrimSpace(args[0]),
				Name:       strings.TrimSpace(name),
				Category:   store.Category(strings.ToLower(strings.TrimSpace(category))),
				Phone:      strings.TrimSpace(phone),
				Department: strings.TrimSpace(department),
			}

			if compensation != "" {
				profile, err := buildCompensation(compensation, monthly, deduction, rate)
				if err != nil {
					return err
				}
				person.Compensation = profile
			}

			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				added, err := st.AddPerson(cmd.Context(), person)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s, %s)\n", added.Name, added.ID, added.Category)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&category, "category", "student", "Category: student or faculty")
	cmd.Flags().StringVar(&phone, "phone", "", "Contact phone number")
	cmd.Flags().StringVar(&department, "department", "", "Department or class")
	cmd.Flags().StringVar(&compensation, "compensation", "", "Faculty pay model: regular, visiting-fixed, or visiting-perday")
	cmd.Flags().Float64Var(&monthly, "monthly", 0, "Monthly salary (regular)")
	cmd.Flags().Float64Var(&deduction, "deduction", 0, "Per-day absence deduction (regular)")
	cmd.Flags().Float64Var(&rate, "rate", 0, "Fixed amount or per-day rate (visiting)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func buildCompensation(kind string, monthly, deduction, rate float64) (*store.CompensationProfile, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "regular":
		if monthly <= 0 {
			return nil, fmt.Errorf("--monthly is required for a regular salary")
		}
		return &store.CompensationProfile{
			Kind:            store.CompensationRegular,
			MonthlySalary:   monthly,
			PerDayDeduction: deduction,
		}, nil
	case "visiting-fixed":
		if rate <= 0 {
			return nil, fmt.Errorf("--rate is required for a visiting fixed salary")
		}
		return &store.CompensationProfile{Kind: store.CompensationVisitingFixed, VisitingRate: rate}, nil
	case "visiting-perday":
		if rate <= 0 {
			return nil, fmt.Errorf("--rate is required for a visiting per-day salary")
		}
		return &store.CompensationProfile{Kind: store.CompensationVisitingPerDay, VisitingRate: rate}, nil
	default:
		return nil, fmt.Errorf("unknown compensation model %q", kind)
	}
}

func newPersonListCommand(ctx *commandContext) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered persons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				var filter []store.Category
				if c := strings.TrimSpace(category); c != "" {
					filter = append(filter, store.Category(strings.ToLower(c)))
				}
				persons, err := st.ListPersons(cmd.Context(), filter...)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(persons))
				for _, p := range persons {
					rows = append(rows, []string{p.ID, p.Name, string(p.Category), p.Department, p.Phone, describeCompensation(p.Compensation)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Category", "Department", "Phone", "Compensation"},
					rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	return cmd
}

func describeCompensation(comp *store.CompensationProfile) string {
	if comp == nil {
		return ""
	}
	switch comp.Kind {
	case store.CompensationRegular:
		return fmt.Sprintf("regular %.2f (-%.2f/day)", comp.MonthlySalary, comp.PerDayDeduction)
	case store.CompensationVisitingFixed:
		return fmt.Sprintf("visiting fixed %.2f", comp.VisitingRate)
	case store.CompensationVisitingPerDay:
		return fmt.Sprintf("visiting %.2f/day", comp.VisitingRate)
	default:
		return string(comp.Kind)
	}
}

func newPersonRemoveCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a person, their embeddings, and their attendance records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				id := strings.TrimSpace(args[0])
				if err := st.DeletePerson(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
				return nil
			})
		},
	}
	return cmd
}

func newPersonAddFaceCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-face <id> <image.jpg>",
		Short: "Register a face image for recognition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				id := strings.TrimSpace(args[0])
				pixels, err := os.ReadFile(args[1])
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				imgCfg, err := jpeg.DecodeConfig(bytes.NewReader(pixels))
				if err != nil {
					return fmt.Errorf("decode image: %w", err)
				}

				if _, err := st.GetPerson(cmd.Context(), id); err != nil {
					return err
				}

				embedder, err := recognizer.NewDlibEmbedder(cfg.Recognition.ModelDir, 0)
				if err != nil {
					return err
				}
				defer embedder.Close()

				crop := vision.Crop{
					Frame: vision.Frame{Width: imgCfg.Width, Height: imgCfg.Height, Pixels: pixels},
					Box:   vision.BoundingBox{Width: imgCfg.Width, Height: imgCfg.Height},
				}
				vector, err := embedder.Embed(cmd.Context(), crop)
				if err != nil {
					return err
				}
				if len(vector) != cfg.Recognition.EmbeddingDimension {
					return fmt.Errorf("embedding has %d dimensions, expected %d", len(vector), cfg.Recognition.EmbeddingDimension)
				}
				if _, err := st.SaveEmbedding(cmd.Context(), id, vector, "dlib"); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored face embedding for %s\n", id)
				return nil
			})
		},
	}
	return cmd
}

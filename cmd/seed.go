package main

import (
	"fmt"
	"io"
	"time"

	"github.com/devpantoja/vai-me-bancar-back/internal/app"
	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/devpantoja/vai-me-bancar-back/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	warHelpAmounts = []int64{1000, 1500, 2000, 2500, 3000, 3500, 4000, 4500, 5000, 5500}
	warStopAmounts = []int64{10000, 15000, 20000, 5000}
)

func seedWarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-war",
		Short: "Create a demo project where stop donations outweigh help donations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()
			out := cmd.OutOrStdout()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			dbpool, err := openPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer dbpool.Close()

			events := connectPublisher(cfg.RabbitMQURL, logger)
			defer events.Close()

			service, _, err := newService(cfg, store.NewPostgresRepository(dbpool), events, logger)
			if err != nil {
				return err
			}

			now := time.Now()
			project, err := service.CreateProject(ctx, domain.CreateProjectRequest{
				Name:        "Projeto de Teste - Guerra de Vaquinhas",
				Description: "Projeto criado para testar a guerra entre doações help e stop. Meta: R$ 40.000",
				Budget:      decimal.NewFromInt(40000),
				StartDate:   now,
				EndDate:     now.AddDate(0, 0, 30),
				OwnerName:   "João Teste",
				Cellphone:   "11999999999",
			})
			if err != nil {
				return fmt.Errorf("failed to create project: %w", err)
			}
			fmt.Fprintf(out, "Projeto criado: %s (%s)\n", project.ID, project.CategoryLabel)

			for i, amount := range warHelpAmounts {
				if err := seedDonation(cmd, service, project.ID, amount, domain.DonationHelp, fmt.Sprintf("Ajudador %d", i+1), fmt.Sprintf("1199999999%d", i)); err != nil {
					return err
				}
			}
			for i, amount := range warStopAmounts {
				if err := seedDonation(cmd, service, project.ID, amount, domain.DonationStop, fmt.Sprintf("Hater %d", i+1), fmt.Sprintf("1188888888%d", i)); err != nil {
					return err
				}
			}

			stats, err := service.Stats(ctx, project.ID)
			if err != nil {
				return err
			}
			printStats(out, stats)
			fmt.Fprintf(out, "GET /api/projects/%s/fundraising-stats\n", project.ID)
			return nil
		},
	}
}

func seedDonation(cmd *cobra.Command, service *app.Service, projectID uuid.UUID, amount int64, kind domain.DonationType, donor, cellphone string) error {
	message := "Vamos ajudar o projeto! 💪"
	if kind == domain.DonationStop {
		message = "Vamos parar esse projeto! 😈"
	}
	receipt, err := service.CreateDonation(cmd.Context(), domain.CreateDonationRequest{
		ProjectID:       projectID,
		Amount:          decimal.NewFromInt(amount),
		Status:          domain.DonationPaid,
		DonationType:    kind,
		DonationMessage: &message,
		DonorName:       donor,
		Cellphone:       cellphone,
	})
	if err != nil {
		return fmt.Errorf("failed to create %s donation for %s: %w", kind, donor, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  %-5s %-12s R$ %s\n", kind, donor, receipt.Donation.Amount.StringFixed(2))
	return nil
}

func printStats(out io.Writer, stats *domain.FundraisingStats) {
	stopWins := "NÃO 💚"
	if stats.StopWins {
		stopWins = "SIM 😈"
	}
	fmt.Fprintln(out, "ESTATÍSTICAS FINAIS")
	fmt.Fprintf(out, "  Total arrecadado  R$ %s\n", stats.TotalAmount.StringFixed(2))
	fmt.Fprintf(out, "  Para AJUDAR       R$ %s (%s%%, %d doações)\n", stats.HelpAmount.StringFixed(2), stats.HelpPercentage.StringFixed(2), stats.HelpCount)
	fmt.Fprintf(out, "  Para PARAR        R$ %s (%s%%, %d doações)\n", stats.StopAmount.StringFixed(2), stats.StopPercentage.StringFixed(2), stats.StopCount)
	fmt.Fprintf(out, "  STOP ganha?       %s\n", stopWins)
	if stats.TrollMessage != nil {
		fmt.Fprintf(out, "\n%s\n", *stats.TrollMessage)
	}
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yoockh/techfinder/internal/app"
)

var favoriteCmd = &cobra.Command{
	Use:   "favorite",
	Short: "Manage a recruiter's favorite contractors",
}

var favoriteToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Flip whether a contractor is a favorite of a recruiter",
	RunE:  runFavoriteToggle,
}

var favoriteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a recruiter's favorites, newest first",
	RunE:  runFavoriteList,
}

func init() {
	rootCmd.AddCommand(favoriteCmd)
	favoriteCmd.AddCommand(favoriteToggleCmd, favoriteListCmd)

	favoriteCmd.PersistentFlags().String("recruiter", "", "recruiter identity")
	_ = favoriteCmd.MarkPersistentFlagRequired("recruiter")

	favoriteToggleCmd.Flags().String("tech", "", "contractor document id")
	_ = favoriteToggleCmd.MarkFlagRequired("tech")
}

func runFavoriteToggle(cmd *cobra.Command, _ []string) error {
	recruiter, _ := cmd.Flags().GetString("recruiter")
	tech, _ := cmd.Flags().GetString("tech")

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	current, err := a.Favorites.IsFavorite(ctx, recruiter, tech)
	if err != nil {
		return err
	}
	next, err := a.Favorites.Toggle(ctx, recruiter, tech, current)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "favorited: %t\n", next)
	return nil
}

func runFavoriteList(cmd *cobra.Command, _ []string) error {
	recruiter, _ := cmd.Flags().GetString("recruiter")

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	favs, err := a.Favorites.List(ctx, recruiter)
	if err != nil {
		return err
	}
	for _, f := range favs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", f.TechID, f.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

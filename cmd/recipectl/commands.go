package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/socialchef/recipebot/internal/bot"
	"github.com/socialchef/recipebot/internal/config"
	"github.com/socialchef/recipebot/internal/logger"
	"github.com/socialchef/recipebot/internal/services/recipe"
	"github.com/socialchef/recipebot/internal/services/translation"
	"github.com/socialchef/recipebot/internal/validation"
)

type options struct {
	locale  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "recipectl",
		Short: "Run recipe bot lookups from the command line",
		Long: `recipectl calls the same recipe and translation APIs as the bot and
prints what the bot would send, without Telegram.

It reads the bot's environment (.env and config.yaml); TELEGRAM_BOT_TOKEN is
not needed.

Example:
  recipectl lookup pasta
  recipectl lookup --translate "chicken curry"
  recipectl translate "2 cloves garlic"`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			env := "production"
			if opts.verbose {
				env = "development"
			}
			slog.SetDefault(logger.NewWithWriter(env, cmd.ErrOrStderr()))
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.locale, "locale", "", "Reply language (en or ru); defaults to BOT_LOCALE")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(newLookupCmd(opts))
	rootCmd.AddCommand(newTranslateCmd())

	return rootCmd
}

func newLookupCmd(opts *options) *cobra.Command {
	var translate bool

	cmd := &cobra.Command{
		Use:   "lookup <dish name>",
		Short: "Look up a recipe and print the bot's reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadForLookup()
			if err != nil {
				return err
			}

			code := cfg.Bot.Locale
			if opts.locale != "" {
				code = strings.ToLower(opts.locale)
			}
			locale, err := bot.LoadLocale(code, bot.MenuStyle(cfg.Bot.MenuStyle))
			if err != nil {
				return err
			}

			dishName, err := validation.NormalizeDishName(strings.Join(args, " "))
			if err != nil {
				return err
			}

			result, err := recipe.NewProvider(cfg, nil).Lookup(cmd.Context(), dishName)
			if recipe.IsNotFound(err) {
				fmt.Fprintln(cmd.OutOrStdout(), locale.NotFound)
				return nil
			}
			if err != nil {
				return fmt.Errorf("lookup failed: %w", err)
			}

			ingredients := result.Ingredients
			if translate {
				pair := translation.LangPair{Source: cfg.Translation.Source, Target: cfg.Translation.Target}
				ingredients = translation.NewTranslator(translation.NewProvider(cfg, nil), pair).TranslateAll(cmd.Context(), ingredients)
			}

			printRecipe(cmd.OutOrStdout(), locale, result, ingredients)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&translate, "translate", "t", false, "Translate ingredient lines with the configured language pair")

	return cmd
}

func newTranslateCmd() *cobra.Command {
	var source, target string

	cmd := &cobra.Command{
		Use:   "translate <text>",
		Short: "Translate text with the configured translation API",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadForLookup()
			if err != nil {
				return err
			}

			pair := translation.LangPair{Source: cfg.Translation.Source, Target: cfg.Translation.Target}
			if source != "" {
				pair.Source = source
			}
			if target != "" {
				pair.Target = target
			}

			// Unlike the bot, the CLI reports translation errors.
			translated, err := translation.NewProvider(cfg, nil).Translate(cmd.Context(), strings.Join(args, " "), pair)
			if err != nil {
				return fmt.Errorf("translation failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), translated)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "from", "", "Source language (default TRANSLATION_SOURCE)")
	cmd.Flags().StringVar(&target, "to", "", "Target language (default TRANSLATION_TARGET)")

	return cmd
}

func printRecipe(w io.Writer, locale *bot.Locale, r *recipe.Recipe, ingredients []string) {
	if r.ImageURL != "" {
		fmt.Fprintf(w, "[photo] %s\n", r.ImageURL)
	}
	fmt.Fprintln(w, bot.FormatRecipe(locale, r, ingredients, bot.CaptionLimit))
}

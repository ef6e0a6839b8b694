package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryan-buckman/pantry/internal/model"
)

var (
	mealReq = model.DefaultMealRequest()

	profAllergies, profDiets, profGoals, profDisliked []string
)

// =============================================================================
// MEALS AND DIETARY PROFILE
// =============================================================================

var mealsCmd = &cobra.Command{
	Use:   "meals",
	Short: "Get meal suggestions from the inventory",
	RunE:  runMealsSuggest,
}

var mealsSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest recipes using what is in stock",
	Long: `Asks the backend for recipes built from available items. The saved
dietary profile is added to the free-text preferences.`,
	RunE: runMealsSuggest,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or change the dietary profile",
	RunE:  runProfileShow,
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the dietary profile",
	RunE:  runProfileShow,
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace parts of the dietary profile",
	Example: `  pantry profile set --allergies peanuts,shellfish --diets vegetarian
  pantry profile set --disliked cilantro`,
	RunE: runProfileSet,
}

func init() {
	f := mealsCmd.PersistentFlags()
	f.StringVarP(&mealReq.Type, "type", "t", "", "Meal type: breakfast, lunch, dinner, snack")
	f.StringVar(&mealReq.Style, "style", "", "Cuisine or style")
	f.IntVar(&mealReq.MaxTime, "max-time", mealReq.MaxTime, "Maximum total time in minutes")
	f.IntVar(&mealReq.Servings, "servings", mealReq.Servings, "Servings")
	f.StringVar(&mealReq.AdditionalPreferences, "prefs", "", "Additional preferences")
	mealsCmd.AddCommand(mealsSuggestCmd)

	f = profileSetCmd.Flags()
	f.StringSliceVar(&profAllergies, "allergies", nil, "Allergies")
	f.StringSliceVar(&profDiets, "diets", nil, "Diets")
	f.StringSliceVar(&profGoals, "goals", nil, "Health goals")
	f.StringSliceVar(&profDisliked, "disliked", nil, "Disliked ingredients")
	profileCmd.AddCommand(profileShowCmd, profileSetCmd)
}

func runMealsSuggest(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext()
	defer cancel()

	res, err := e.svc.SuggestMeals(ctx, mealReq)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !res.Success {
		fmt.Fprintf(out, "No suggestions: %s\n", res.Message)
		return nil
	}
	fmt.Fprintf(out, "🍳 %d recipes using %d available items\n", len(res.Recipes), res.AvailableItemsCount)
	for i, r := range res.Recipes {
		fmt.Fprintln(out, strings.Repeat("─", 50))
		printRecipe(out, i+1, r)
	}
	return nil
}

func printRecipe(out io.Writer, n int, r model.Recipe) {
	fmt.Fprintf(out, "%d. %s  (%d min · %d servings)\n", n, r.Name, r.TotalTime, r.Servings)
	if r.Description != "" {
		fmt.Fprintf(out, "   %s\n", r.Description)
	}
	for _, ing := range r.Ingredients {
		stock := ""
		if ing.InventoryItemID != nil {
			stock = " ✓"
		}
		fmt.Fprintf(out, "   - %s %s %s%s\n",
			strconv.FormatFloat(ing.QuantityRequired, 'f', -1, 64), ing.Unit, ing.Name, stock)
	}
	for i, step := range r.Instructions {
		fmt.Fprintf(out, "   %d) %s\n", i+1, step)
	}
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	p, err := e.svc.Profile()
	if err != nil {
		return err
	}
	printProfile(cmd.OutOrStdout(), p)
	return nil
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	p, err := e.svc.Profile()
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("allergies") {
		p.Allergies = profAllergies
	}
	if f.Changed("diets") {
		p.Diets = profDiets
	}
	if f.Changed("goals") {
		p.HealthGoals = profGoals
	}
	if f.Changed("disliked") {
		p.DislikedIngredients = profDisliked
	}
	p, err = e.svc.SaveProfile(p)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Profile saved")
	printProfile(out, p)
	return nil
}

func printProfile(out io.Writer, p model.DietaryProfile) {
	labels := func(opts []model.Option, values []string) string {
		if len(values) == 0 {
			return "none"
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = model.OptionLabel(opts, v)
		}
		return strings.Join(parts, ", ")
	}
	fmt.Fprintf(out, "Allergies:     %s\n", labels(model.Allergies, p.Allergies))
	fmt.Fprintf(out, "Diets:         %s\n", labels(model.Diets, p.Diets))
	fmt.Fprintf(out, "Health goals:  %s\n", labels(model.HealthGoals, p.HealthGoals))
	fmt.Fprintf(out, "Disliked:      %s\n", labels(nil, p.DislikedIngredients))
}

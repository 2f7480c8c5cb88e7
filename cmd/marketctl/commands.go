package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/avatarctic/services-marketplace/go/configs"
	"github.com/avatarctic/services-marketplace/go/internal/application/queries"
	"github.com/avatarctic/services-marketplace/go/internal/application/querycache"
	"github.com/avatarctic/services-marketplace/go/internal/application/services"
	"github.com/avatarctic/services-marketplace/go/internal/application/toast"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/billing"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/directory"
)

type cli struct {
	out     io.Writer
	errOut  io.Writer
	apiURL  string
	token   string
	locale  string
	timeout time.Duration

	cfg *configs.Config
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithOutput(os.Stdout, os.Stderr)
}

func newRootCmdWithOutput(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "marketctl",
		Short:         "Marketplace client engine from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configs.Load()
			if err != nil {
				return err
			}
			if c.apiURL != "" {
				cfg.Client.BaseURL = c.apiURL
			}
			if c.token != "" {
				cfg.Client.AccessToken = c.token
			}
			c.cfg = cfg
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&c.apiURL, "api-url", "", "billing API base URL (default $API_BASE_URL)")
	root.PersistentFlags().StringVar(&c.token, "token", "", "bearer token (default $API_TOKEN)")
	root.PersistentFlags().StringVar(&c.locale, "locale", "", "display locale (default $LOCALE_DEFAULT)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", time.Minute, "overall command timeout")

	root.AddCommand(
		c.entitlementCmd(),
		c.gateCmd(),
		c.messagesCmd(),
		c.citiesCmd(),
		c.categoriesCmd(),
		c.upgradeCmd(),
		c.tokenCmd(),
	)
	return root
}

// session starts the client engine for one command. done prints the toasts
// still visible and tears the session down.
func (c *cli) session(cmd *cobra.Command) (ctx context.Context, done func(), a *app, err error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	a, err = newApp(ctx, c.cfg, c.locale)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	done = func() {
		c.printToasts(a)
		a.close()
		cancel()
	}
	return ctx, done, a, nil
}

func (c *cli) entitlementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entitlement",
		Short: "Print the merged plan, usage and limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done, a, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer done()

			a.resolver.Start()
			ent, err := a.resolver.Wait(ctx)
			if err != nil {
				return err
			}
			if ent.State == billing.StateError && ent.Err != nil {
				a.failure(ent.Err)
			}

			view := struct {
				billing.Entitlement
				LimitStatus map[billing.Resource]billing.LimitStatus `json:"limitStatus"`
			}{Entitlement: ent, LimitStatus: map[billing.Resource]billing.LimitStatus{}}
			for _, r := range []billing.Resource{billing.ResourceLeads, billing.ResourceServices, billing.ResourceBookings} {
				view.LimitStatus[r] = ent.Check(r)
			}
			return c.printJSON(view)
		},
	}
}

func (c *cli) gateCmd() *cobra.Command {
	var free bool
	cmd := &cobra.Command{
		Use:   "gate <feature>",
		Short: "Evaluate a feature gate against the current entitlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done, a, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer done()

			a.resolver.Start()
			if _, err := a.resolver.Wait(ctx); err != nil {
				return err
			}
			decision := a.resolver.RequiresPro(billing.Feature{Key: args[0], FreeTierAllowed: free})
			fmt.Fprintf(c.out, "%s: %s\n", args[0], decision)

			switch {
			case decision.ShowUpgrade():
				a.toasts.Show(toast.Options{
					Title:       a.catalog.T("plan.upgrade.title"),
					Description: a.catalog.T("plan.upgrade.description"),
				})
			case decision == billing.DecisionUnavailable:
				fmt.Fprintln(c.out, a.catalog.T("common.unavailable"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&free, "free", false, "the feature is available on the free tier")
	return cmd
}

func (c *cli) messagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "messages <locale> [key]",
		Short: "Print the message bundle used for a locale",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.locale = args[0]
			ctx, done, a, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer done()

			if len(args) == 2 {
				fmt.Fprintln(c.out, a.catalog.T(args[1]))
				return nil
			}
			bundle, err := a.catalog.Load(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "# locale: %s\n", bundle.Locale())
			messages := bundle.Messages()
			for _, key := range bundle.Keys() {
				fmt.Fprintf(c.out, "%s = %s\n", key, messages[key])
			}
			return nil
		},
	}
}

func (c *cli) citiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cities <state>",
		Short: "List the cities of a state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done, a, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer done()

			q := queries.Cities(a.api, strings.ToUpper(args[0]))
			q.StaleTime = a.cfg.Cache.StaticStaleTime
			cities, err := querycache.Fetch[[]directory.City](ctx, a.cache, q)
			if err != nil {
				a.failure(err)
				return err
			}
			fmt.Fprintf(c.out, "%s (%d)\n", a.catalog.T("directory.cities"), len(cities))
			for _, city := range cities {
				fmt.Fprintf(c.out, "  %s/%s\n", city.Name, city.State)
			}
			return nil
		},
	}
}

func (c *cli) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the service categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done, a, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer done()

			q := queries.Categories(a.api)
			q.StaleTime = a.cfg.Cache.StaticStaleTime
			categories, err := querycache.Fetch[[]directory.Category](ctx, a.cache, q)
			if err != nil {
				a.failure(err)
				return err
			}
			fmt.Fprintf(c.out, "%s (%d)\n", a.catalog.T("directory.categories"), len(categories))
			for _, cat := range categories {
				fmt.Fprintf(c.out, "  %-20s %s\n", cat.Slug, cat.Name)
			}
			return nil
		},
	}
}

func (c *cli) upgradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade <FREE|PRO>",
		Short: "Change the current plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planType, ok := billing.ParsePlanType(args[0])
			if !ok {
				return fmt.Errorf("unknown plan %q", args[0])
			}
			ctx, done, a, err := c.session(cmd)
			if err != nil {
				return err
			}
			defer done()

			a.resolver.Start()
			if _, err := a.cache.Mutate(ctx, queries.ChangePlan(a.api, planType)); err != nil {
				a.failure(err)
				return err
			}

			// The mutation invalidated the plan and limits; wait for the refetch.
			ent, err := waitForPlan(ctx, a, planType)
			if err != nil {
				return err
			}
			a.toasts.Show(toast.Options{
				Title:       a.catalog.T("plan.changed"),
				Description: ent.Plan.Name,
				Variant:     toast.VariantSuccess,
			})
			fmt.Fprintf(c.out, "%s: %s\n", a.catalog.T("plan.current"), ent.Plan.Name)
			return nil
		},
	}
}

func waitForPlan(ctx context.Context, a *app, planType billing.PlanType) (billing.Entitlement, error) {
	done := make(chan billing.Entitlement, 1)
	unsubscribe := a.resolver.Subscribe(func(e billing.Entitlement) {
		if !e.Loading && e.Plan.Type == planType {
			select {
			case done <- e:
			default:
			}
		}
	})
	defer unsubscribe()

	select {
	case e := <-done:
		return e, nil
	case <-ctx.Done():
		return a.resolver.Resolve(), ctx.Err()
	}
}

func (c *cli) tokenCmd() *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <provider-id>",
		Short: "Mint a development access token with the configured JWT secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			providerID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid provider id: %w", err)
			}
			token, err := services.NewTokenService(c.cfg.JWT, nil).IssueToken(cmd.Context(), providerID, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default $JWT_ACCESS_TTL)")
	return cmd
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) printToasts(a *app) {
	for _, t := range a.toasts.List() {
		fmt.Fprintf(c.errOut, "[%s] %s", t.Variant, t.Title)
		if t.Description != "" {
			fmt.Fprintf(c.errOut, ": %s", t.Description)
		}
		fmt.Fprintln(c.errOut)
	}
}

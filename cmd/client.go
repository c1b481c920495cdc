package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/frahmantamala/expenseflow/pkg/client"
	"github.com/spf13/cobra"
)

const clientTimeout = 30 * time.Second

var (
	clientServer    string
	clientTokenFile string
	clientEmail     string
	clientPassword  string
	clientFullName  string
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Talk to a running ExpenseFlow server",
	Long:  `Sign in, inspect the session and work the approval queue of a running server.`,
}

var clientSignInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in with email and password",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, _, err := newClientSession()
		if err != nil {
			return err
		}
		if err := s.SignIn(cmd.Context(), clientEmail, clientPassword); err != nil {
			return err
		}
		return printState(s.Current())
	},
}

var clientSignUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, _, err := newClientSession()
		if err != nil {
			return err
		}
		req := client.SignUpRequest{Email: clientEmail, Password: clientPassword, FullName: clientFullName}
		if err := s.SignUp(cmd.Context(), req); err != nil {
			return err
		}
		return printState(s.Current())
	},
}

var clientWhoAmICmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored session and where it routes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, _, err := newClientSession()
		if err != nil {
			return err
		}
		if err := s.Start(cmd.Context()); err != nil {
			return err
		}
		return printState(s.Current())
	},
}

var clientSignOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Revoke the stored tokens",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, _, err := newClientSession()
		if err != nil {
			return err
		}
		if err := s.Start(cmd.Context()); err != nil && !client.IsUnauthorized(err) {
			return err
		}
		if err := s.SignOut(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("signed out")
		return nil
	},
}

var clientApprovalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "List the pending approval queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, c, err := newClientSession()
		if err != nil {
			return err
		}
		if err := s.Start(cmd.Context()); err != nil {
			return err
		}
		if !s.Current().SignedIn() {
			return errors.New("not signed in")
		}

		q := client.NewApprovalQueue(c, 50)
		if err := q.Refresh(cmd.Context()); err != nil {
			return err
		}
		for _, exp := range q.Items() {
			fmt.Printf("%s  %s %s  %s\n", exp.ID, exp.Amount.StringFixed(2), exp.Currency, exp.Title)
		}
		fmt.Printf("%d pending\n", q.Len())
		return nil
	},
}

func newClientSession() (*client.Session, *client.Client, error) {
	c, err := client.New(clientServer,
		client.WithHTTPClient(&http.Client{Timeout: clientTimeout}),
		client.WithUserAgent("expenseflow-cli"),
	)
	if err != nil {
		return nil, nil, err
	}
	return client.NewSession(c, client.FileTokenStore{Path: clientTokenFile}), c, nil
}

func printState(state client.State) error {
	if !state.SignedIn() {
		fmt.Println("not signed in")
		return nil
	}
	out := map[string]interface{}{
		"user":  state.User,
		"route": state.Route,
	}
	if state.Resolution != nil {
		out["state"] = state.Resolution.State
		out["role"] = state.Resolution.Role
		if state.Resolution.Organization != nil {
			out["organization"] = state.Resolution.Organization.Slug
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "expenseflow", "tokens.json")
}

func init() {
	clientCmd.PersistentFlags().StringVar(&clientServer, "server", "http://localhost:8080", "server base URL")
	clientCmd.PersistentFlags().StringVar(&clientTokenFile, "token-file", defaultTokenFile(), "where tokens are kept between runs")

	for _, c := range []*cobra.Command{clientSignInCmd, clientSignUpCmd} {
		c.Flags().StringVar(&clientEmail, "email", "", "account email")
		c.Flags().StringVar(&clientPassword, "password", "", "account password")
		c.MarkFlagRequired("email")
		c.MarkFlagRequired("password")
	}
	clientSignUpCmd.Flags().StringVar(&clientFullName, "name", "", "full name")

	clientCmd.AddCommand(clientSignInCmd, clientSignUpCmd, clientWhoAmICmd, clientSignOutCmd, clientApprovalsCmd)
}

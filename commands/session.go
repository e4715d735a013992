package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"snap2sell/models"
	"snap2sell/nav"
	"snap2sell/utils"

	"github.com/spf13/cobra"
)

// readPassword takes the flag value, then SNAP2SELL_PASSWORD, then one line of stdin.
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("SNAP2SELL_PASSWORD"); env != "" {
		return env, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLoginCommand(rt *runtime) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and keep the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !utils.ValidateEmail(args[0]) {
				return failure(out, "Invalid email")
			}
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			res := rt.app.Session.Login(cmd.Context(), args[0], pw)
			if !res.Success {
				return failure(out, res.Error)
			}
			printOK(out, "Logged in as %s (%s), home %s", res.User.Name, res.User.Role, nav.HomeFor(res.User.Role))
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	return cmd
}

func newSignupCommand(rt *runtime) *cobra.Command {
	var p models.SignupProfile
	var role string
	cmd := &cobra.Command{
		Use:   "signup <email>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			p.Email = args[0]
			p.Role = models.Role(strings.ToLower(role))
			switch {
			case !utils.ValidateEmail(p.Email):
				return failure(out, "Invalid email")
			case strings.TrimSpace(p.Name) == "":
				return failure(out, "Name is required")
			case p.Role != "" && !p.Role.Valid():
				return failure(out, "Role must be farmer or consumer")
			}
			pw, err := readPassword(cmd, p.Password)
			if err != nil {
				return err
			}
			if !utils.ValidatePassword(pw) {
				return failure(out, "Password must be at least 6 characters")
			}
			p.Password = pw

			res := rt.app.Session.Signup(cmd.Context(), p)
			if !res.Success {
				return failure(out, res.Error)
			}
			printOK(out, "Welcome %s, home %s", res.User.Name, nav.HomeFor(res.User.Role))
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Name, "name", "", "full name")
	cmd.Flags().StringVarP(&p.Password, "password", "p", "", "password (prompted when empty)")
	cmd.Flags().StringVar(&role, "role", string(models.RoleConsumer), "farmer or consumer")
	cmd.Flags().StringVar(&p.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&p.Address, "address", "", "address")
	return cmd
}

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			rt.app.Session.Logout(cmd.Context())
			printOK(cmd.OutOrStdout(), "Logged out")
		},
	}
}

func newWhoamiCommand(rt *runtime) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			state := rt.app.Session.Snapshot(cmd.Context())
			if asJSON {
				return printJSON(out, state)
			}
			if !state.IsAuthenticated {
				return failure(out, "Not logged in")
			}
			u := state.User
			table(out, "FIELD\tVALUE", func(tw io.Writer) {
				fmtRow(tw, "id", u.UserID)
				fmtRow(tw, "name", u.Name)
				fmtRow(tw, "email", u.Email)
				fmtRow(tw, "role", u.Role)
				fmtRow(tw, "phone", u.Phone)
				fmtRow(tw, "address", u.Address)
				fmtRow(tw, "since", utils.FormatTime(u.CreatedAt))
			})
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw session state")
	return cmd
}

func newProfileCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your profile",
	}

	var name, phone, address string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change name, phone or address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch models.ProfilePatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("phone") {
				patch.Phone = &phone
			}
			if cmd.Flags().Changed("address") {
				patch.Address = &address
			}
			out := cmd.OutOrStdout()
			res := rt.app.Session.UpdateProfile(cmd.Context(), patch)
			if !res.Success {
				return failure(out, res.Error)
			}
			printOK(out, "Profile updated")
			return nil
		},
	}
	update.Flags().StringVar(&name, "name", "", "new name")
	update.Flags().StringVar(&phone, "phone", "", "new phone")
	update.Flags().StringVar(&address, "address", "", "new address")

	cmd.AddCommand(update)
	return cmd
}

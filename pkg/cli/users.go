package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/forum"
)

func newCreateUserCommand(load Loader) *cobra.Command {
	var (
		in   forum.RegisterInput
		role string
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account, optionally with a staff role",
		Long: `Create an account with the same validation as registration.

The password is read from the first line of stdin when --password is not given:

  echo "$ADMIN_PASSWORD" | forumctl create-user --username admin --email admin@example.com --role admin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := auth.Role(role)
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if in.Password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password is required (--password or stdin)")
				}
				in.Password = strings.TrimRight(line, "\r\n")
			}

			a, err := openApp(cmd.Context(), load, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.svc.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			if r != auth.RoleUser {
				if err := a.setRole(cmd, user, r); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d, role %s)\n", user.Username, user.ID, r)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "Username (3-50 characters)")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password; read from stdin when empty")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleUser), "Role: user, moderator or admin")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")

	return cmd
}

func newSetRoleCommand(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <username|id> <role>",
		Short: "Change an account's role",
		Long:  "Change an account's role. Unlike the API this may promote or demote administrators, so it can recover a forum with no admin left.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := auth.Role(args[1])
			if !role.Valid() {
				return fmt.Errorf("unknown role %q", args[1])
			}

			a, err := openApp(cmd.Context(), load, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.lookupUser(cmd, args[0])
			if err != nil {
				return err
			}
			if user.Role == role {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already has role %s\n", user.Username, role)
				return nil
			}
			previous := user.Role
			if err := a.setRole(cmd, user, role); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "changed role of %s from %s to %s\n", user.Username, previous, role)
			return nil
		},
	}
}

func (a *app) lookupUser(cmd *cobra.Command, ref string) (*auth.User, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return a.store.GetUserByID(cmd.Context(), id)
	}
	return a.store.GetUserByUsername(cmd.Context(), ref)
}

// setRole writes the role directly, bypassing the authorization rules of the service
func (a *app) setRole(cmd *cobra.Command, user *auth.User, role auth.Role) error {
	ctx := cmd.Context()
	if err := a.store.SetUserRole(ctx, user.ID, role); err != nil {
		return err
	}

	err := a.audit.LogModeration(ctx, audit.EventTypeUserRoleChange, 0, operator,
		audit.ResourceTypeUser, strconv.FormatInt(user.ID, 10),
		audit.Change("role", string(user.Role), string(role)), "role set by "+operator)
	if err != nil {
		a.logger.WithError(err).Warn("failed to record audit event")
	}

	user.Role = role
	return nil
}

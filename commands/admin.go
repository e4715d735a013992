package commands

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"snap2sell/admin"
	"snap2sell/models"
	"snap2sell/utils"

	"github.com/spf13/cobra"
)

func pagingFlags(cmd *cobra.Command, page, limit *int) {
	cmd.Flags().IntVar(page, "page", 1, "page number")
	cmd.Flags().IntVar(limit, "limit", utils.DefaultLimit, "items per page")
}

func newAdminCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer users, listings and the assistant's documents",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			u := rt.app.Session.User()
			if u == nil || u.Role != models.RoleAdmin {
				return failure(cmd.OutOrStdout(), "Admin access required")
			}
			return nil
		},
	}

	var page, limit int
	users := &cobra.Command{
		Use:   "users",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			res, err := rt.app.Admin.Users(cmd.Context(), page, limit)
			if err != nil {
				return apiFailure(out, err, "Failed to load users")
			}
			table(out, "ID\tNAME\tEMAIL\tROLE\tSINCE", func(tw io.Writer) {
				for _, u := range res.Data {
					fmtRow(tw, u.UserID, u.Name, u.Email, u.Role, utils.FormatTime(u.CreatedAt))
				}
			})
			p, _ := utils.ClampPage(page, limit)
			pageFooter(out, p, res.TotalPages(), res.Pagination.Total)
			return nil
		},
	}
	pagingFlags(users, &page, &limit)

	user := &cobra.Command{
		Use:   "user <userId>",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			u, err := rt.app.Admin.User(cmd.Context(), args[0])
			if err != nil {
				return apiFailure(out, err, "User not found")
			}
			return printJSON(out, u)
		},
	}

	var name, role, phone, address string
	var active bool
	updateUser := &cobra.Command{
		Use:   "update-user <userId>",
		Short: "Change an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var in admin.UserUpdate
			f := cmd.Flags()
			if f.Changed("name") {
				in.Name = &name
			}
			if f.Changed("role") {
				r := models.Role(strings.ToLower(role))
				if !r.Valid() {
					return failure(out, "Unknown role "+role)
				}
				in.Role = &r
			}
			if f.Changed("phone") {
				in.Phone = &phone
			}
			if f.Changed("address") {
				in.Address = &address
			}
			if f.Changed("active") {
				in.Active = &active
			}
			if err := rt.app.Admin.UpdateUser(cmd.Context(), args[0], in); err != nil {
				return apiFailure(out, err, "Failed to update user")
			}
			printOK(out, "User %s updated", args[0])
			return nil
		},
	}
	updateUser.Flags().StringVar(&name, "name", "", "name")
	updateUser.Flags().StringVar(&role, "role", "", "farmer, consumer or admin")
	updateUser.Flags().StringVar(&phone, "phone", "", "phone")
	updateUser.Flags().StringVar(&address, "address", "", "address")
	updateUser.Flags().BoolVar(&active, "active", true, "account enabled")

	deleteUser := &cobra.Command{
		Use:   "delete-user <userId>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := rt.app.Admin.DeleteUser(cmd.Context(), args[0]); err != nil {
				return apiFailure(out, err, "Failed to delete user")
			}
			printOK(out, "User %s deleted", args[0])
			return nil
		},
	}

	var ppage, plimit int
	productsCmd := &cobra.Command{
		Use:   "products",
		Short: "List every product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			res, err := rt.app.Admin.Products(cmd.Context(), ppage, plimit)
			if err != nil {
				return apiFailure(out, err, "Failed to load products")
			}
			p, _ := utils.ClampPage(ppage, plimit)
			printProducts(out, res, p)
			return nil
		},
	}
	pagingFlags(productsCmd, &ppage, &plimit)

	var opage, olimit int
	ordersCmd := &cobra.Command{
		Use:   "orders",
		Short: "List every order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			res, err := rt.app.Admin.Orders(cmd.Context(), opage, olimit)
			if err != nil {
				return apiFailure(out, err, "Failed to load orders")
			}
			table(out, "ID\tSTATUS\tITEMS\tTOTAL\tPLACED", func(tw io.Writer) {
				for _, o := range res.Data {
					fmtRow(tw, o.OrderID, o.Status, len(o.Items), utils.FormatPrice(o.Total), utils.FormatTime(o.CreatedAt))
				}
			})
			p, _ := utils.ClampPage(opage, olimit)
			pageFooter(out, p, res.TotalPages(), res.Pagination.Total)
			return nil
		},
	}
	pagingFlags(ordersCmd, &opage, &olimit)

	upload := &cobra.Command{
		Use:   "upload-document <file>",
		Short: "Add a document to the assistant's knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			f, err := os.Open(args[0])
			if err != nil {
				return failure(out, "Cannot open document: "+err.Error())
			}
			defer f.Close()

			res, err := rt.app.Admin.UploadDocument(cmd.Context(), filepath.Base(args[0]), f)
			if errors.Is(err, admin.ErrUnsupportedDocument) {
				return failure(out, "Only "+strings.Join(admin.DocumentExtensions, ", ")+" documents are accepted")
			}
			if err != nil {
				return apiFailure(out, err, "Failed to upload document")
			}
			printOK(out, "Uploaded %s", filepath.Base(args[0]))
			if len(res) > 0 {
				return printJSON(out, res)
			}
			return nil
		},
	}

	cmd.AddCommand(users, user, updateUser, deleteUser, productsCmd, ordersCmd, upload)
	return cmd
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/distritherm-admin/agencies"
	"github.com/jrsteele09/distritherm-admin/brands"
	"github.com/jrsteele09/distritherm-admin/campaigns"
	"github.com/jrsteele09/distritherm-admin/categories"
	"github.com/jrsteele09/distritherm-admin/pagination"
	"github.com/jrsteele09/distritherm-admin/products"
	"github.com/jrsteele09/distritherm-admin/quotes"
	"github.com/jrsteele09/distritherm-admin/users"
)

type command struct {
	summary string
	usage   string
	run     func(ctx context.Context, a *app, args []string) error
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"login":      {"sign in and store the session", "-email <email> [-password <password>]", runLogin},
		"logout":     {"sign out and forget the session", "", runLogout},
		"whoami":     {"show the signed in user", "", runWhoami},
		"quotes":     {"list and manage quotes", "list|show|total|status|assign|upload ...", runQuotes},
		"products":   {"list products", "list [-search s] [-category id] [-mark id]", runProducts},
		"promotions": {"list products on promotion", "list", runPromotions},
		"brands":     {"list brands", "list", runBrands},
		"categories": {"list categories", "list [-agency id]", runCategories},
		"agencies":   {"list agencies", "list", runAgencies},
		"users":      {"list users", "list | by-role <ADMIN|COMMERCIAL|CLIENT>", runUsers},
		"campaigns":  {"send an email campaign", "send -subject s -content c (-role r | -to a,b) [-attach f1,f2]", runCampaigns},
		"dashboard":  {"show collection totals", "[-watch interval]", runDashboard},
	}
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return err
		}
		return usageError{msg: err.Error()}
	}
	return nil
}

func pageFlags(fs *flag.FlagSet) func() pagination.Params {
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", pagination.DefaultLimit, "items per page")
	return func() pagination.Params {
		return pagination.Params{Page: pagination.NormalizePage(*page), Limit: pagination.NormalizeLimit(*limit)}
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("invalid id %q", s)
	}
	return id, nil
}

func subcommand(args []string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, usagef("missing subcommand")
	}
	return args[0], args[1:], nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("DISTRITHERM_PASSWORD"), "account password, defaults to $DISTRITHERM_PASSWORD")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return usagef("email and password are required")
	}
	u, err := a.auth.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	return printUser(a.out, u)
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.sessions.Init(ctx); err != nil {
		return err
	}
	return a.auth.Logout(ctx)
}

func runWhoami(ctx context.Context, a *app, _ []string) error {
	u, err := a.signedIn(ctx)
	if err != nil {
		return err
	}
	return printUser(a.out, u)
}

func printUser(p printer, u *users.User) error {
	return p.print(u, func(w io.Writer) {
		fmt.Fprintf(w, "%s\t%s\t%s\n", u.FullName(), u.Email, u.Role)
	})
}

func runQuotes(ctx context.Context, a *app, args []string) error {
	sub, args, err := subcommand(args)
	if err != nil {
		return err
	}
	if _, err := a.signedIn(ctx); err != nil {
		return err
	}

	switch sub {
	case "list":
		fs := newFlagSet("quotes list")
		params := pageFlags(fs)
		status := fs.String("status", "", "only quotes with this status")
		commercial := fs.Int64("commercial", 0, "only quotes assigned to this commercial")
		if err := parseFlags(fs, args); err != nil {
			return err
		}
		filters := quotes.Filters{CommercialID: *commercial}
		if *status != "" {
			s, err := quotes.ParseStatus(*status)
			if err != nil {
				return usagef("%v", err)
			}
			filters.Status = s
		}
		page, err := a.quotes.Search(ctx, filters, params())
		if err != nil {
			return err
		}
		return printPage(a.out, page, "ID\tSTATUS\tCLIENT\tCOMMERCIAL\tTOTAL\tFILE", quoteRow)

	case "show", "total":
		if len(args) != 1 {
			return usagef("expected a quote id")
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		q, err := a.quotes.Get(ctx, id)
		if err != nil {
			return err
		}
		total := quotes.Total(&q)
		if sub == "total" {
			return a.out.print(map[string]any{"id": q.ID, "total": total}, func(w io.Writer) {
				fmt.Fprintf(w, "%s €\n", total.StringFixed(2))
			})
		}
		return a.out.print(q, func(w io.Writer) {
			fmt.Fprintln(w, "ID\tSTATUS\tCLIENT\tCOMMERCIAL\tTOTAL\tFILE")
			fmt.Fprintln(w, quoteRow(q))
			if q.Cart != nil {
				fmt.Fprintln(w, "\nPRODUCT\tQTY\tLINE")
				for _, it := range q.Cart.CartItems {
					fmt.Fprintf(w, "%s\t%d\t%s\n", it.Product.Name, it.Quantity, quotes.LineTotal(it).StringFixed(2))
				}
			}
		})

	case "status":
		if len(args) != 2 {
			return usagef("expected a quote id and a status")
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		status, err := quotes.ParseStatus(args[1])
		if err != nil {
			return usagef("%v", err)
		}
		q, err := a.quotes.UpdateStatus(ctx, id, status)
		if err != nil {
			return err
		}
		return printQuote(a.out, q)

	case "assign":
		if len(args) != 2 {
			return usagef("expected a quote id and a commercial id, 0 to unassign")
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		commercial, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || commercial < 0 {
			return usagef("invalid commercial id %q", args[1])
		}
		q, err := a.quotes.AssignCommercial(ctx, id, commercial)
		if err != nil {
			return err
		}
		return printQuote(a.out, q)

	case "upload":
		fs := newFlagSet("quotes upload")
		end := fs.String("end", "", "validity end date, YYYY-MM-DD")
		if err := parseFlags(fs, args); err != nil {
			return err
		}
		if fs.NArg() != 2 || *end == "" {
			return usagef("expected -end <date> <quote id> <file.pdf>")
		}
		id, err := parseID(fs.Arg(0))
		if err != nil {
			return err
		}
		endDate, err := time.ParseInLocation(time.DateOnly, *end, time.Local)
		if err != nil {
			return usagef("invalid end date %q", *end)
		}
		data, err := os.ReadFile(fs.Arg(1))
		if err != nil {
			return err
		}
		q, err := a.quotes.UploadFile(ctx, quotes.Upload{QuoteID: id, FileName: fs.Arg(1), Data: data, EndDate: endDate})
		if err != nil {
			return err
		}
		return printQuote(a.out, q)
	}
	return usagef("unknown subcommand %q", sub)
}

func printQuote(p printer, q quotes.Quote) error {
	return p.print(q, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tSTATUS\tCLIENT\tCOMMERCIAL\tTOTAL\tFILE")
		fmt.Fprintln(w, quoteRow(q))
	})
}

func quoteRow(q quotes.Quote) string {
	client := strconv.FormatInt(q.UserID, 10)
	if q.User != nil {
		client = q.User.FullName()
	}
	commercial := "-"
	if q.Commercial != nil && q.Commercial.User != nil {
		commercial = q.Commercial.User.FullName()
	} else if id := q.AssignedTo(); id != 0 {
		commercial = strconv.FormatInt(id, 10)
	}
	file := "-"
	if q.HasFile() {
		file = q.FileURL
	}
	return fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%s", q.ID, q.Status.Label(), client, commercial, quotes.Total(&q).StringFixed(2), file)
}

func runProducts(ctx context.Context, a *app, args []string) error {
	sub, args, err := subcommand(args)
	if err != nil {
		return err
	}
	if sub != "list" {
		return usagef("unknown subcommand %q", sub)
	}
	fs := newFlagSet("products list")
	params := pageFlags(fs)
	search := fs.String("search", "", "name contains")
	category := fs.Int64("category", 0, "category id")
	mark := fs.Int64("mark", 0, "brand id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, err := a.signedIn(ctx); err != nil {
		return err
	}
	page, err := a.products.Search(ctx, products.Filters{Search: *search, CategoryID: *category, MarkID: *mark}, params())
	if err != nil {
		return err
	}
	return printPage(a.out, page, "ID\tNAME\tBRAND\tCATEGORY\tPRICE\tSTOCK", productRow)
}

func productRow(p products.Product) string {
	price := p.UnitPrice().StringFixed(2)
	if p.OnPromotion() {
		price += " (promo)"
	}
	return fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%d", p.ID, p.Name, p.MarkName, p.CategoryName, price, p.Quantity)
}

func runPromotions(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("promotions list")
	params := pageFlags(fs)
	if len(args) > 0 && args[0] == "list" {
		args = args[1:]
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, err := a.signedIn(ctx); err != nil {
		return err
	}
	page, err := a.promotions.List(ctx, params())
	if err != nil {
		return err
	}
	return printPage(a.out, page, "ID\tNAME\tPRICE\tPROMO\tDISCOUNT", func(p products.Product) string {
		discount := "-"
		if p.PromotionPercentage != nil {
			discount = p.PromotionPercentage.StringFixed(0) + "%"
		}
		return fmt.Sprintf("%d\t%s\t%s\t%s\t%s", p.ID, p.Name, p.Price.StringFixed(2), p.UnitPrice().StringFixed(2), discount)
	})
}

func runBrands(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("brands list")
	params := pageFlags(fs)
	if len(args) > 0 && args[0] == "list" {
		args = args[1:]
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, err := a.signedIn(ctx); err != nil {
		return err
	}
	page, err := a.brands.List(ctx, params())
	if err != nil {
		return err
	}
	return printPage(a.out, page, "ID\tNAME", func(b brands.Brand) string {
		return fmt.Sprintf("%d\t%s", b.ID, b.Name)
	})
}

func runCategories(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("categories list")
	params := pageFlags(fs)
	agency := fs.Int64("agency", 0, "agency id")
	if len(args) > 0 && args[0] == "list" {
		args = args[1:]
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, err := a.signedIn(ctx); err != nil {
		return err
	}
	page, err := a.categories.List(ctx, categories.ByAgency(params(), *agency))
	if err != nil {
		return err
	}
	return printPage(a.out, page, "ID\tNAME\tLEVEL\tAGENCY", func(c categories.Category) string {
		name := c.Name
		if c.ParentCategoryID != nil {
			name = strings.Repeat("  ", max(c.Level-1, 1)) + name
		}
		return fmt.Sprintf("%d\t%s\t%d\t%s", c.ID, name, c.Level, c.AgenceName)
	})
}

func runAgencies(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("agencies list")
	params := pageFlags(fs)
	if len(args) > 0 && args[0] == "list" {
		args = args[1:]
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, err := a.signedIn(ctx); err != nil {
		return err
	}
	page, err := a.agencies.List(ctx, params())
	if err != nil {
		return err
	}
	return printPage(a.out, page, "ID\tNAME\tCITY\tPHONE", func(ag agencies.Agency) string {
		return fmt.Sprintf("%d\t%s\t%s\t%s", ag.ID, ag.Name, ag.City, ag.Phone)
	})
}

func runUsers(ctx context.Context, a *app, args []string) error {
	sub, args, err := subcommand(args)
	if err != nil {
		return err
	}
	fs := newFlagSet("users " + sub)
	params := pageFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, err := a.signedIn(ctx); err != nil {
		return err
	}

	var page pagination.Page[users.User]
	switch sub {
	case "list":
		page, err = a.users.List(ctx, params())
	case "by-role":
		if fs.NArg() != 1 {
			return usagef("expected a role")
		}
		page, err = a.users.ListByRole(ctx, users.RoleType(strings.ToUpper(fs.Arg(0))), params())
	default:
		return usagef("unknown subcommand %q", sub)
	}
	if err != nil {
		return err
	}
	return printPage(a.out, page, "ID\tNAME\tEMAIL\tROLE\tVERIFIED", func(u users.User) string {
		return fmt.Sprintf("%d\t%s\t%s\t%s\t%t", u.ID, u.FullName(), u.Email, u.Role, u.IsEmailVerified)
	})
}

func runCampaigns(ctx context.Context, a *app, args []string) error {
	sub, args, err := subcommand(args)
	if err != nil {
		return err
	}
	if sub != "send" {
		return usagef("unknown subcommand %q", sub)
	}
	fs := newFlagSet("campaigns send")
	subject := fs.String("subject", "", "email subject")
	content := fs.String("content", "", "email body")
	contentFile := fs.String("content-file", "", "read the email body from this file")
	role := fs.String("role", "", "send to every user with this role")
	to := fs.String("to", "", "comma separated recipients")
	attach := fs.String("attach", "", "comma separated files to attach")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	c := campaigns.Campaign{Subject: *subject, Content: *content, Role: users.RoleType(strings.ToUpper(*role))}
	if *contentFile != "" {
		body, err := os.ReadFile(*contentFile)
		if err != nil {
			return err
		}
		c.Content = string(body)
	}
	if *to != "" {
		c.Recipients = splitList(*to)
	}
	for _, path := range splitList(*attach) {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		c.Attachments = append(c.Attachments, campaigns.Attachment{FileName: path, Data: data})
	}

	if _, err := a.signedIn(ctx); err != nil {
		return err
	}
	res, err := a.campaigns.Send(ctx, c)
	if err != nil {
		return err
	}
	return a.out.print(res, func(w io.Writer) {
		fmt.Fprintln(w, res.Message)
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"jobboard-bot/internal/api/board"
	"jobboard-bot/internal/bot/utils"
	"jobboard-bot/internal/listing"
	"jobboard-bot/internal/models"
)

const adminTimeout = 30 * time.Second

const addCompanyPrompt = `➕ Send the company as one line:

Name; domain; city, city

Example: Acme GmbH; acme.de; Berlin, Munich`

const addJobPrompt = `➕ Send the job as "field: value" lines. title, company and url are required.

title: Backend Engineer
company: Acme GmbH
url: https://acme.de/jobs/42
location: Berlin
department: Engineering
contract: Full-time
experience: Senior
posted: 2024-05-01
german: no
description: ...`

// /stats
func HandleStats(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		sess, ok := requireAdmin(ctx, c)
		if !ok {
			return nil
		}

		reqCtx, cancel := context.WithTimeout(context.Background(), adminTimeout)
		defer cancel()

		stats, err := ctx.Board.DailyStats(reqCtx, sess.Token)
		if err != nil {
			return c.Send(adminFailure(ctx, c, err))
		}

		return c.Send(utils.FormatStats(stats), tele.ModeMarkdownV2)
	}
}

// /addcompany
func HandleAddCompany(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, ok := requireAdmin(ctx, c); !ok {
			return nil
		}

		if err := setUserState(ctx, c.Sender().ID, StateAddCompany); err != nil {
			ctx.Logger.Error("failed to set user state", zap.Error(err))
		}

		return c.Send(addCompanyPrompt, utils.CancelKeyboard())
	}
}

func handleAddCompanyInput(ctx *Context, c tele.Context) error {
	userID := c.Sender().ID

	nc, err := parseCompanyForm(c.Text())
	if err != nil {
		return c.Send("❌ "+err.Error()+"\n\n"+addCompanyPrompt, utils.CancelKeyboard())
	}

	sess, ok := requireAdmin(ctx, c)
	if !ok {
		_ = clearUserState(ctx, userID)
		return nil
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	var created *models.Company
	if managed, ok := openListAs[*listing.AdminCompanies](ctx, userID); ok {
		// the open list reloads itself once the company exists
		created, err = managed.Add(reqCtx, nc)
		if created != nil && err != nil {
			ctx.Logger.Warn("company added but reload failed", zap.Error(err))
			err = nil
		}
	} else {
		created, err = ctx.Board.AddCompany(reqCtx, sess.Token, nc)
	}
	if err != nil {
		return c.Send(adminFailure(ctx, c, err), utils.MainMenuKeyboard())
	}

	_ = clearUserState(ctx, userID)

	return c.Send(fmt.Sprintf("✅ %s added to the directory.", created.Name), utils.MainMenuKeyboard())
}

// /addjob
func HandleAddJob(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, ok := requireAdmin(ctx, c); !ok {
			return nil
		}

		if err := setUserState(ctx, c.Sender().ID, StateAddJob); err != nil {
			ctx.Logger.Error("failed to set user state", zap.Error(err))
		}

		return c.Send(addJobPrompt, utils.CancelKeyboard())
	}
}

func handleAddJobInput(ctx *Context, c tele.Context) error {
	userID := c.Sender().ID

	nj, err := parseJobForm(c.Text())
	if err != nil {
		return c.Send("❌ "+err.Error()+"\n\n"+addJobPrompt, utils.CancelKeyboard())
	}

	sess, ok := requireAdmin(ctx, c)
	if !ok {
		_ = clearUserState(ctx, userID)
		return nil
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	created, err := ctx.Board.AddJob(reqCtx, sess.Token, nj)
	if err != nil {
		return c.Send(adminFailure(ctx, c, err), utils.MainMenuKeyboard())
	}

	_ = clearUserState(ctx, userID)

	ctx.Logger.Info("job added", zap.String("job_id", created.ID), zap.String("by", sess.Email))

	return c.Send(fmt.Sprintf("✅ %s at %s added.", nj.Title, nj.Company), utils.MainMenuKeyboard())
}

// /digest
func HandleDigest(ctx *Context) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, ok := requireAdmin(ctx, c); !ok {
			return nil
		}

		dbCtx, cancel := dbContext()
		defer cancel()

		user, err := ctx.Store.GetUser(dbCtx, c.Sender().ID)
		if err != nil || user == nil {
			return c.Send("😔 Send /start first.")
		}

		return c.Send(digestStatus(user.DigestEnabled), utils.DigestKeyboard(user.DigestEnabled))
	}
}

func digestStatus(enabled bool) string {
	if enabled {
		return "🔔 The admin digest is on."
	}
	return "🔕 The admin digest is off."
}

// adminFailure turns a backend error into a reply. A rejected session is
// dropped along with the open list.
func adminFailure(ctx *Context, c tele.Context, err error) string {
	if errors.Is(err, board.ErrUnauthorized) {
		ctx.expireSession(c.Sender().ID, err)
		return "🔒 Your session expired. Send /login to sign in again."
	}

	ctx.Logger.Error("admin request failed", zap.Int64("user_id", c.Sender().ID), zap.Error(err))
	return "😔 The job board refused the request: " + err.Error()
}

// openListAs returns the user's open list when it has type L
func openListAs[L engine](ctx *Context, userID int64) (L, bool) {
	var zero L
	v := ctx.Views.get(userID)
	if v == nil {
		return zero, false
	}
	l, ok := v.list.(L)
	return l, ok
}

// parseCompanyForm reads "Name; domain; city, city"
func parseCompanyForm(text string) (models.NewCompany, error) {
	parts := strings.SplitN(text, ";", 3)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var nc models.NewCompany
	nc.Name = parts[0]
	if len(parts) > 1 {
		nc.Domain = parts[1]
	}
	if len(parts) > 2 {
		var cities []string
		for _, city := range strings.Split(parts[2], ",") {
			if city = strings.TrimSpace(city); city != "" {
				cities = append(cities, city)
			}
		}
		nc.Cities = strings.Join(cities, ", ")
	}

	return nc, nc.Validate()
}

// parseJobForm reads "field: value" lines. Unknown fields are rejected so
// typos do not vanish silently.
func parseJobForm(text string) (models.NewJob, error) {
	var nj models.NewJob

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nj, fmt.Errorf("line %q has no field name", line)
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "title":
			nj.Title = value
		case "company":
			nj.Company = value
		case "url":
			nj.ApplicationURL = value
		case "location":
			nj.Location = value
		case "department":
			nj.Department = value
		case "contract":
			nj.ContractType = value
		case "experience":
			nj.ExperienceLevel = value
		case "posted":
			if _, err := time.Parse("2006-01-02", value); err != nil {
				return nj, fmt.Errorf("posted must look like 2024-05-01")
			}
			nj.PostedDate = value
		case "german":
			switch strings.ToLower(value) {
			case "yes", "true", "required":
				nj.GermanRequired = true
			case "no", "false", "":
				nj.GermanRequired = false
			default:
				return nj, fmt.Errorf("german must be yes or no")
			}
		case "description":
			nj.Description = value
		default:
			return nj, fmt.Errorf("unknown field %q", key)
		}
	}

	switch {
	case nj.Title == "":
		return nj, fmt.Errorf("title is required")
	case nj.Company == "":
		return nj, fmt.Errorf("company is required")
	case nj.ApplicationURL == "":
		return nj, fmt.Errorf("url is required")
	}

	return nj, nil
}

// Package main — служебные команды для обслуживания базы.
//
//	maintenance confirm-emails [email]   подтвердить email (один или все)
//	maintenance check-users [email]      показать пользователя или первые 100
//	maintenance smoke-investment <email> создать и удалить тестовый депозит
//
// Код выхода 0 — успех, 1 — ошибка.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/invest-platform/internal/config"
	"serotonyl.ru/invest-platform/internal/db/postgres"
	"serotonyl.ru/invest-platform/internal/features/accounts"
	"serotonyl.ru/invest-platform/internal/features/investments"
	"serotonyl.ru/invest-platform/internal/features/plans"
	"serotonyl.ru/invest-platform/internal/logging"
)

const commandTimeout = 2 * time.Minute

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 || len(args) > 2 {
		usage()
		return 1
	}
	command, email := args[0], ""
	if len(args) == 2 {
		email = args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	logging.Setup(cfg.AppLogFormat, "warn")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		return 1
	}
	defer pool.Close()

	users := accounts.NewService(accounts.Deps{Store: accounts.NewRepository(pool)})

	switch command {
	case "confirm-emails":
		err = confirmEmails(ctx, users, email)
	case "check-users":
		err = checkUsers(ctx, users, email)
	case "smoke-investment":
		err = smokeInvestment(ctx, users, investments.NewRepository(pool), email)
	default:
		usage()
		return 1
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "FAIL:", err)
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: maintenance confirm-emails|check-users|smoke-investment [email]")
}

func confirmEmails(ctx context.Context, users *accounts.Service, email string) error {
	n, err := users.ConfirmEmails(ctx, email)
	if err != nil {
		return err
	}
	fmt.Printf("confirmed: %d\n", n)
	return nil
}

func checkUsers(ctx context.Context, users *accounts.Service, email string) error {
	list, err := users.CheckUsers(ctx, email)
	if err != nil {
		return err
	}
	for _, u := range list {
		confirmed := "no"
		if u.EmailConfirmedAt != nil {
			confirmed = "yes"
		}
		fmt.Printf("%d\t%s\t%s\tbalance=%s\tbonus=%s\tkyc=%s\tconfirmed=%s\n",
			u.IDNum, u.Email, u.Name, u.Balance.StringFixed(2), u.Bonus.StringFixed(2), u.KYCStatus, confirmed)
	}
	fmt.Printf("total: %d\n", len(list))
	return nil
}

// smokeInvestment проверяет запись в investments: вставляет Pending-депозит
// на минимальную сумму первого плана и сразу удаляет его.
func smokeInvestment(ctx context.Context, users *accounts.Service, repo *investments.Repository, email string) error {
	if email == "" {
		return fmt.Errorf("smoke-investment requires an email")
	}
	list, err := users.CheckUsers(ctx, email)
	if err != nil {
		return err
	}
	user := list[0]

	plan := plans.Catalog()[0]
	inv := &investments.Investment{
		ID:            uuid.New(),
		UserID:        user.ID,
		Plan:          plan.Name,
		Status:        investments.StatusPending,
		Capital:       plan.MinCapital,
		DurationDays:  plan.DurationDays,
		PaymentOption: "Bitcoin",
	}
	if err := repo.Create(ctx, inv); err != nil {
		return err
	}
	fmt.Printf("created investment %s for idnum %d (%s, %s)\n", inv.ID, inv.IDNum, inv.Plan, inv.Capital.StringFixed(2))

	if err := repo.DeletePending(ctx, inv.ID); err != nil {
		log.WithError(err).WithField("investment_id", inv.ID).Error("Тестовый депозит не удалён")
		return err
	}
	fmt.Println("cleanup: ok")
	return nil
}

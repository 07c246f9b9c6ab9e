//go:build integration

package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iliyamo/credits-api/internal/config"
	"github.com/iliyamo/credits-api/internal/database"
	"github.com/iliyamo/credits-api/internal/model"
	"github.com/iliyamo/credits-api/internal/repository"
)

var dbConfig config.DBConfig

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "mysql:8.4",
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "password",
				"MYSQL_DATABASE":      "credits_test",
			},
			WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(3 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		panic(err)
	}
	dbConfig = config.DBConfig{User: "root", Pass: "password", Host: host, Port: port.Port(), Name: "credits_test"}

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestSettleAgainstMySQL(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	users := repository.NewUserRepo(db)
	txs := repository.NewTransactionRepo(db)
	pay := &fakePayments{customerID: "cus_it"}
	userSvc := NewUserService(db, users, txs, pay, 4, quietLogger())

	u, err := userSvc.Create(ctx, NewUser{Email: "buyer@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.True(t, u.Credits.Equal(decimal.NewFromInt(100)), u.Credits.String())

	pay.completed = CheckoutCompleted{
		UserID:         u.ID,
		PaymentIntent:  "pi_it_1",
		ValueInCredits: decimal.NewFromInt(500),
		ValueInFiat:    decimal.NewFromInt(5),
	}
	ledger := newLedger(db, pay)

	// Concurrent webhook retries must credit exactly once.
	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ledger.Settle(ctx, []byte("{}"), "sig")
		}(i)
	}
	wg.Wait()

	settled := 0
	for _, err := range results {
		if err == nil {
			settled++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadySettled)
	}
	assert.Equal(t, 1, settled)

	got, err := users.Get(ctx, repository.UserByID(u.ID))
	require.NoError(t, err)
	assert.True(t, got.Credits.Equal(decimal.NewFromInt(600)), got.Credits.String())

	list, err := txs.ListByUser(ctx, u.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	var bought model.Transaction
	for _, tr := range list {
		if tr.StripePaymentIntent != nil {
			bought = tr
		}
	}
	require.NotNil(t, bought.StripePaymentIntent)
	assert.Equal(t, "pi_it_1", *bought.StripePaymentIntent)
	assert.Equal(t, model.Credit, bought.Type)
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	users := repository.NewUserRepo(db)
	txs := repository.NewTransactionRepo(db)
	userSvc := NewUserService(db, users, txs, &fakePayments{customerID: "cus_del"}, 4, quietLogger())

	u, err := userSvc.Create(ctx, NewUser{Email: fmt.Sprintf("gone%d@example.com", time.Now().UnixNano()), Password: "password1"})
	require.NoError(t, err)
	require.NoError(t, userSvc.Delete(ctx, u.ID))

	list, err := txs.ListByUser(ctx, u.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = userSvc.View(ctx, repository.UserByID(u.ID))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

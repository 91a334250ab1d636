//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"drone-fleet/internal/drone"
	"drone-fleet/internal/order"
	"drone-fleet/internal/store"
	"drone-fleet/internal/store/postgres"
)

type StoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	store     *postgres.Store
}

func TestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("fleet_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60*time.Second)),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := postgres.Connect(ctx, dsn, postgres.DefaultPoolConfig())
	s.Require().NoError(err)
	s.Require().NoError(postgres.MigrateUp(db))
	s.store = postgres.New(db)
}

func (s *StoreSuite) SetupTest() {
	_, err := s.store.DB().Exec("TRUNCATE TABLE orders, drones")
	s.Require().NoError(err)
}

func (s *StoreSuite) TearDownSuite() {
	if s.store != nil {
		s.Require().NoError(postgres.MigrateDown(s.store.DB()))
		s.store.Close()
	}
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(context.Background()))
	}
}

func (s *StoreSuite) seedDrone() *drone.Drone {
	d := drone.New(drone.RegisterDroneRequest{Name: "D", Model: "X1", MaxPayload: 5, Range: 20, Speed: 60})
	s.Require().NoError(s.store.Drones().Create(context.Background(), d))
	return d
}

func (s *StoreSuite) seedOrder(tracking string) *order.Order {
	o := order.New(order.CreateOrderRequest{
		CustomerID:       "cust-1",
		CustomerName:     "Jane",
		CustomerEmail:    "jane@example.com",
		Items:            []order.Item{{Name: "box", Quantity: 2, Weight: 0.9}},
		PickupLocation:   order.Address{Address: "Depot", Lat: 40.71, Lng: -74.0},
		DeliveryLocation: order.Address{Address: "Home", Lat: 40.73, Lng: -73.93},
	}, order.DefaultPricing(), time.Now())
	o.TrackingNumber = tracking
	s.Require().NoError(s.store.Orders().Create(context.Background(), o))
	return o
}

func (s *StoreSuite) TestOrderRoundTrip() {
	ctx := context.Background()
	o := s.seedOrder("DF1700000000000AAAA")

	got, err := s.store.Orders().GetByTrackingNumber(ctx, o.TrackingNumber)
	s.Require().NoError(err)
	s.Equal(o.ID, got.ID)
	s.Equal(o.Items, got.Items)
	s.Equal(o.PickupLocation, got.PickupLocation)
	s.Equal(o.Price, got.Price)
	s.Nil(got.CurrentLocation)
	s.WithinDuration(o.CreatedAt, got.CreatedAt, time.Millisecond)
}

func (s *StoreSuite) TestDuplicateTrackingNumber() {
	o := s.seedOrder("DF1700000000000BBBB")

	dup := o.Clone()
	dup.ID = uuid.New()
	err := s.store.Orders().Create(context.Background(), dup)
	s.ErrorIs(err, store.ErrDuplicate)
}

func (s *StoreSuite) TestNotFound() {
	_, err := s.store.Drones().Get(context.Background(), uuid.New())
	s.ErrorIs(err, store.ErrNotFound)
	_, _, err = s.store.Orders().Update(context.Background(), uuid.New(), nil, func(*order.Order) {})
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *StoreSuite) TestAssignRollsBackOnOrderMiss() {
	ctx := context.Background()
	d := s.seedDrone()
	o := s.seedOrder("DF1700000000000CCCC")
	_, _, err := s.store.Orders().Update(ctx, o.ID, nil, func(o *order.Order) { o.Status = order.StatusCancelled })
	s.Require().NoError(err)

	errMiss := errors.New("order not assignable")
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		_, ok, err := tx.Drones().Update(ctx, d.ID, store.DroneClaimable(), func(d *drone.Drone) {
			d.Status = drone.StatusInTransit
		})
		s.Require().NoError(err)
		s.Require().True(ok)

		_, ok, err = tx.Orders().Update(ctx, o.ID, store.OrderIn(order.AssignableStatuses...), func(o *order.Order) {
			o.Status = order.StatusAssigned
			o.DroneID = &d.ID
		})
		s.Require().NoError(err)
		if !ok {
			return errMiss
		}
		return nil
	})
	s.ErrorIs(err, errMiss)

	got, err := s.store.Drones().Get(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(drone.StatusAvailable, got.Status)
}

func (s *StoreSuite) TestConcurrentClaimHasOneWinner() {
	ctx := context.Background()
	d := s.seedDrone()

	const n = 10
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.store.Drones().Update(ctx, d.ID, store.DroneClaimable(), func(d *drone.Drone) {
				d.Status = drone.StatusInTransit
			})
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}

func (s *StoreSuite) TestListFilters() {
	ctx := context.Background()
	d := s.seedDrone()
	o1 := s.seedOrder("DF1700000000000DDDD")
	s.seedOrder("DF1700000000000EEEE")

	_, ok, err := s.store.Orders().Update(ctx, o1.ID, nil, func(o *order.Order) {
		o.Status = order.StatusAssigned
		o.DroneID = &d.ID
	})
	s.Require().NoError(err)
	s.Require().True(ok)

	list, err := s.store.Orders().List(ctx, order.Filter{Status: []order.Status{order.StatusAssigned}})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(o1.ID, list[0].ID)

	list, err = s.store.Orders().List(ctx, order.Filter{DroneID: &d.ID})
	s.Require().NoError(err)
	s.Len(list, 1)

	n, err := s.store.Orders().CountBoundTo(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *StoreSuite) TestMigrationsRoundTrip() {
	db := s.store.DB()
	s.Require().NoError(postgres.MigrateDown(db))

	var n int
	s.Require().NoError(db.Get(&n, "SELECT count(*) FROM information_schema.tables WHERE table_name = 'orders'"))
	s.Equal(0, n)

	version, dirty, err := postgres.SchemaVersion(context.Background(), db)
	s.Require().NoError(err)
	s.Zero(version)
	s.False(dirty)

	s.Require().NoError(postgres.MigrateUp(db))
	s.Require().NoError(db.Get(&n, "SELECT count(*) FROM information_schema.tables WHERE table_name = 'orders'"))
	s.Equal(1, n)

	version, dirty, err = postgres.SchemaVersion(context.Background(), db)
	s.Require().NoError(err)
	s.Equal(uint(1), version)
	s.False(dirty)
}

func (s *StoreSuite) TestPoolMetrics() {
	s.Require().NoError(s.store.DB().Ping())
	m := s.store.PoolMetrics()
	s.Equal(postgres.DefaultPoolConfig().MaxOpenConns, m.MaxOpenConnections)
	s.GreaterOrEqual(m.OpenConnections, 1)
	s.Equal(m.OpenConnections, m.InUse+m.Idle)
}

func (s *StoreSuite) TestListByDeliveryStaff() {
	ctx := context.Background()
	o := s.seedOrder("DF1700000000000SSSS")
	s.seedOrder("DF1700000000000TTTT")

	staff := "staff-1"
	_, _, err := s.store.Orders().Update(ctx, o.ID, nil, func(o *order.Order) { o.DeliveryStaffID = &staff })
	s.Require().NoError(err)

	got, err := s.store.Orders().List(ctx, order.Filter{StaffID: &staff})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(o.ID, got[0].ID)
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"main/internal/exchange/bybit"
	"main/internal/recorder"
	"main/pkg/conn"
	"main/pkg/session"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
)

func main() {
	testnet := flag.Bool("testnet", true, "Use the Bybit testnet environment")
	demo := flag.Bool("demo", false, "Use the Bybit demo trading environment")
	symbol := flag.String("symbol", "BTCUSDT", "Symbol to query")
	ttl := flag.Duration("ttl", 10*time.Minute, "Client cache entry lifetime")
	cleanupInterval := flag.Duration("cleanup-interval", time.Minute, "Cache cleanup sweep interval")
	maxConns := flag.Int("max-connections", 2000, "Shared session pool size")
	stream := flag.Bool("stream", false, "Subscribe the public ticker stream")
	placeOrder := flag.Bool("place-test-order", false, "Place a small limit order (testnet/demo only)")
	pgConn := flag.String("pg-conn", "", "PostgreSQL connection string for the order recorder (empty=disabled)")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disabled)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trader",
			ServerAddress:   *pyroscopeAddr,
			Tags: map[string]string{
				"env": "local",
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Errorf("pyroscope start failed: %+v", err)
			os.Exit(1)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	// One shared connection pool for every client created below.
	session.Setup(session.Option{MaxConns: *maxConns})
	defer session.Close()

	var store *recorder.Store
	if *pgConn != "" {
		pg, err := conn.New(conn.Option{ConnString: *pgConn})
		if err != nil {
			logs.Errorf("connect postgres: %+v", err)
			os.Exit(1)
		}
		defer pg.Close()

		store, err = recorder.New(pg)
		if err != nil {
			logs.Errorf("init order recorder: %+v", err)
			os.Exit(1)
		}
	}

	clients := bybit.NewClients(*ttl)
	task := clients.CreateCleanupTask(*cleanupInterval)
	defer task.Cancel()

	creds := bybit.Credentials{
		APIKey:    os.Getenv("BYBIT_API_KEY"),
		APISecret: os.Getenv("BYBIT_API_SECRET"),
		Testnet:   *testnet,
		Demo:      *demo,
	}

	handle, err := clients.GetOrCreate(creds, bybit.Option{})
	if err != nil {
		logs.Errorf("create bybit client: %+v", err)
		os.Exit(1)
	}

	if err := run(ctx, handle.Client(), store, *symbol, *placeOrder); err != nil {
		logs.Errorf("trader: %+v", err)
		os.Exit(1)
	}

	if *stream {
		if err := watchTicker(ctx, *testnet, *symbol); err != nil {
			logs.Errorf("ticker stream: %+v", err)
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, client *bybit.Client, store *recorder.Store, symbol string, placeOrder bool) error {
	st, err := client.GetServerTime(ctx)
	if err != nil {
		return err
	}
	logs.Infof("bybit server time: %s (shared session: %t)", st.TimeSecond, client.SharedSession())

	tickers, err := client.GetTickers(ctx, bybit.CategoryLinear, symbol)
	if err != nil {
		return err
	}
	for _, t := range tickers.List {
		logs.Infof("%s last: %v, bid: %v, ask: %v",
			t.Symbol, t.LastPrice, t.Bid1Price, t.Ask1Price)
	}

	if !placeOrder {
		return nil
	}

	params := bybit.PlaceOrderParams{
		Symbol:      symbol,
		Side:        bybit.SideBuy,
		OrderType:   bybit.OrderTypeLimit,
		Qty:         "0.001",
		Price:       "10000",
		TimeInForce: bybit.TimeInForceGTC,
	}

	order, err := client.PlaceOrder(ctx, bybit.CategoryLinear, params)
	if err != nil {
		return err
	}
	logs.Infof("placed order %s", order.OrderID)

	if store != nil {
		return store.Record(ctx, recorder.OrderRecord{
			Exchange:  "bybit",
			Symbol:    params.Symbol,
			Side:      string(params.Side),
			OrderType: string(params.OrderType),
			OrderID:   order.OrderID,
			Price:     params.Price,
			Qty:       params.Qty,
		})
	}

	return nil
}

func watchTicker(ctx context.Context, testnet bool, symbol string) error {
	pub := bybit.NewPublicStream(ctx, testnet)
	defer pub.Close()

	if err := pub.StartWebsocket(ctx); err != nil {
		return err
	}
	if err := pub.SubscribeTicker(ctx, symbol); err != nil {
		return err
	}

	cancel := pub.ObserveTicker(ctx, func(e bybit.TickerEvent) {
		logs.Infof("%s %s last: %v", e.Type, e.Data.Symbol, e.Data.LastPrice)
	})
	defer cancel()

	<-ctx.Done()
	return nil
}

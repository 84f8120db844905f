package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sellos-taller/dashboard/internal/config"
	"github.com/sellos-taller/dashboard/internal/database"
	"github.com/sellos-taller/dashboard/internal/enum"
)

func main() {
	cfg := config.Load()

	// CLI flags override the environment
	email := flag.String("email", cfg.AdminEmail, "Admin operator email")
	password := flag.String("password", cfg.AdminPassword, "Admin operator password")
	name := flag.String("name", "Administración", "Admin operator name")
	demo := flag.Bool("demo", false, "Also insert demo clientes and pedidos")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync() //nolint:errcheck

	if *password == "admin123" {
		logger.Warn("using the default admin password, change it in production")
	}

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.DatabaseURL, cfg.TimeZone)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("ping database", zap.Error(err))
	}

	// Seed in a transaction: operator and demo data land together or not at all
	tx, err := pool.Begin(ctx)
	if err != nil {
		logger.Fatal("begin transaction", zap.Error(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := database.New(tx)

	op, err := seedAdmin(ctx, q, *email, *password, *name)
	if err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}
	logger.Info("admin operator ready", zap.String("email", op.Email), zap.String("id", op.ID.String()))

	if *demo {
		n, err := seedDemo(ctx, tx, q)
		if err != nil {
			logger.Fatal("seed demo data", zap.Error(err))
		}
		logger.Info("demo pedidos inserted", zap.Int("count", n))
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Fatal("commit", zap.Error(err))
	}
	logger.Info("seed completed")
}

// seedAdmin creates the admin operator or resets its password.
func seedAdmin(ctx context.Context, q *database.Queries, email, password, name string) (database.Operador, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return database.Operador{}, fmt.Errorf("hash password: %w", err)
	}
	return q.UpsertOperador(ctx, database.UpsertOperadorParams{
		Email:          email,
		Nombre:         name,
		HashedPassword: string(hashed),
		Rol:            enum.RoleAdmin,
	})
}

type demoPedido struct {
	nombre, apellido, telefono, medio string
	disenio, medida                   string
	daysAgo                           int
	sello, envio, senia               int64 // cents
	fabricacion, venta, envioEstado   string
}

var demoPedidos = []demoPedido{
	{"Ana", "García", "1155550101", "Instagram", "Logo panadería", "4x4", 2, 1500000, 250000, 500000, enum.FabricacionHaciendo, enum.VentaFoto, enum.EnvioHacerEtiqueta},
	{"Luis", "Pérez", "1155550102", "WhatsApp", "Firma escribano", "5x2", 5, 1200000, 0, 1200000, enum.FabricacionHecho, enum.VentaTransferido, enum.EnvioDespachado},
	{"Marta", "Suárez", "1155550103", "Instagram", "Sello boda", "3x3", 9, 1800000, 300000, 0, enum.FabricacionPrioridad, enum.VentaNinguno, enum.EnvioSinEnviar},
	{"Jorge", "Díaz", "1155550104", "Mail", "Logo cafetería", "6x3", 15, 2100000, 250000, 1000000, enum.FabricacionRetocar, enum.VentaFoto, enum.EnvioSinEnviar},
}

// seedDemo inserts sample pedidos unless some already exist.
func seedDemo(ctx context.Context, tx pgx.Tx, q *database.Queries) (int, error) {
	var existing int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM pedidos`).Scan(&existing); err != nil {
		return 0, fmt.Errorf("count pedidos: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}

	now := time.Now()
	for _, d := range demoPedidos {
		clienteID, err := q.CreateCliente(ctx, database.CreateClienteParams{
			NombreCliente:   text(d.nombre),
			ApellidoCliente: text(d.apellido),
			TelefonoCliente: text(d.telefono),
			MedioContacto:   text(d.medio),
		})
		if err != nil {
			return 0, fmt.Errorf("insert cliente %s: %w", d.nombre, err)
		}

		_, err = q.CreatePedido(ctx, database.CreatePedidoParams{
			IDCliente:         pgtype.Int8{Int64: clienteID, Valid: true},
			FechaCompra:       pgtype.Timestamptz{Time: now.AddDate(0, 0, -d.daysAgo), Valid: true},
			Disenio:           text(d.disenio),
			MedidaPedida:      text(d.medida),
			ValorSello:        cents(d.sello),
			ValorEnvio:        cents(d.envio),
			ValorSenia:        cents(d.senia),
			EstadoFabricacion: text(d.fabricacion),
			EstadoVenta:       text(d.venta),
			EstadoEnvio:       text(d.envioEstado),
		})
		if err != nil {
			return 0, fmt.Errorf("insert pedido %s: %w", d.disenio, err)
		}
	}
	return len(demoPedidos), nil
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func cents(v int64) pgtype.Numeric {
	return pgtype.Numeric{Int: big.NewInt(v), Exp: -2, Valid: true}
}

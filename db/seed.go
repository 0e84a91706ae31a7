package db

import (
	"context"
	"time"

	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/models"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func price(v float64) *float64 { return &v }

func demoUsers() []models.User {
	return []models.User{
		{FirstName: "Ivan", LastName: "Petrov", Email: models.OptionalString("ivan.petrov@company.com"), EmployeeID: models.OptionalString("EMP001"), Department: "Workshop 1", Phone: "+7 (123) 456-78-90", Position: "Fitter", IsActive: true},
		{FirstName: "Maria", LastName: "Sidorova", Email: models.OptionalString("maria.sidorova@company.com"), EmployeeID: models.OptionalString("EMP002"), Department: "Office", Phone: "+7 (123) 456-78-91", Position: "Engineer", IsActive: true},
		{FirstName: "Alexey", LastName: "Kuznetsov", Email: models.OptionalString("alex.kuznetsov@company.com"), EmployeeID: models.OptionalString("EMP003"), Department: "Warehouse", Phone: "+7 (123) 456-78-92", Position: "Storekeeper", IsActive: true},
		{FirstName: "Olga", LastName: "Ivanova", Email: models.OptionalString("olga.ivanova@company.com"), EmployeeID: models.OptionalString("EMP004"), Department: "Laboratory", Phone: "+7 (123) 456-78-93", Position: "Technician", IsActive: true},
	}
}

func demoTools() []models.Tool {
	return []models.Tool{
		{Name: "DeWalt DCD791D2 drill driver", Description: "Cordless, 18V, two batteries, case", Category: "Power tools", Location: "Tool store", StoragePlace: "Cabinet A, shelf 3", SerialNumber: models.OptionalString("DWT-2023-001"), Model: "DCD791D2", Manufacturer: "DeWalt", PurchaseDate: date(2023, 5, 15), Price: price(18990), WarrantyUntil: date(2025, 5, 15)},
		{Name: "Fluke 117 multimeter", Description: "Digital, probes included, auto range", Category: "Measuring", Location: "Laboratory", StoragePlace: "Drawer 2", SerialNumber: models.OptionalString("FLK-2022-045"), Model: "117", Manufacturer: "Fluke", PurchaseDate: date(2022, 10, 20), Price: price(12500), WarrantyUntil: date(2024, 10, 20)},
		{Name: "Spanner set", Description: "12 pieces, 6-22mm, chrome vanadium", Category: "Hand tools", Location: "Workshop 1", StoragePlace: "Foreman's desk, drawer", SerialNumber: models.OptionalString("KIT-2023-012"), Manufacturer: "Stayer", PurchaseDate: date(2023, 3, 10), Price: price(3200)},
		{Name: "Bosch GBH 2-28 rotary hammer", Description: "800W, three modes, case", Category: "Power tools", Location: "Tool store", StoragePlace: "Cabinet B, shelf 1", SerialNumber: models.OptionalString("BOS-2023-078"), Model: "GBH 2-28", Manufacturer: "Bosch", PurchaseDate: date(2023, 8, 5), Price: price(23450), WarrantyUntil: date(2025, 8, 5)},
		{Name: "Lukey 702 soldering station", Description: "Digital, 60W, temperature control", Category: "Power tools", Location: "Laboratory", StoragePlace: "Bench 3", SerialNumber: models.OptionalString("LUK-2022-123"), Model: "702", Manufacturer: "Lukey", PurchaseDate: date(2022, 12, 3), Price: price(8900), WarrantyUntil: date(2024, 12, 3)},
	}
}

// SeedDemo fills empty user and tool tables with demo data and checks the
// first tool out to the first user.
func SeedDemo(ctx context.Context, store Store, loanPeriod time.Duration, log *zap.Logger) error {
	users, err := store.ListUsers(ctx, UserFilter{Size: 1})
	if err != nil {
		return err
	}
	tools, err := store.ListToolsWithActiveRequest(ctx, ToolFilter{Size: 1})
	if err != nil {
		return err
	}

	var firstUser, firstTool uint
	if users.Total == 0 {
		for _, u := range demoUsers() {
			u := u
			if err := store.CreateUser(ctx, &u); err != nil {
				return err
			}
			if firstUser == 0 {
				firstUser = u.ID
			}
		}
		log.Info("demo users added", zap.Int("count", len(demoUsers())))
	}
	if tools.Total == 0 {
		for _, t := range demoTools() {
			t := t
			if err := store.CreateTool(ctx, &t); err != nil {
				return err
			}
			if firstTool == 0 {
				firstTool = t.ID
			}
			log.Info("demo tool added", zap.String("name", t.Name), zap.String("scan_code", t.ScanCode))
		}
	}

	if firstUser != 0 && firstTool != 0 {
		d, err := store.TakeTool(ctx, TakeInput{
			UserID:     firstUser,
			ToolID:     firstTool,
			Purpose:    "Assembling steel frames on site 3",
			Now:        time.Now().UTC(),
			LoanPeriod: loanPeriod,
		})
		if err != nil {
			return err
		}
		log.Info("demo checkout added", zap.Uint("request_id", d.ID))
	}
	return nil
}

// seed carga el inventario de unidades desde un export CSV del sistema anterior.
//
// Uso: go run ./cmd/seed unidades.csv [salida.sql]
// Columnas: nombre_unidad, rfid, estado, sub_estado, lote (estado y siguientes opcionales).
// Con salida.sql genera el script; sin ella inserta directo en la base de DB_* / DATABASE_URL.
// Los exports viejos vienen en ISO-8859-1; se detecta y convierte a UTF-8.
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	applifecycle "github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/lifecycle"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
	rules "github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/lifecycle"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/infrastructure/postgres"
	"github.com/JoseeGarciaa/kryotecsense-sub001/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "uso: seed unidades.csv [salida.sql]")
		os.Exit(2)
	}
	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	items, rowErrs := parseUnits(toUTF8(raw))
	for _, e := range rowErrs {
		fmt.Fprintf(os.Stderr, "omitido: %v\n", e)
	}

	if len(os.Args) > 2 {
		if err := writeSQL(os.Args[2], items); err != nil {
			fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generado %s: %d unidades (%d omitidas)\n", os.Args[2], len(items), len(rowErrs))
		return
	}

	inserted, skipped, err := insert(context.Background(), items)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Insertar: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Insertadas %d unidades (%d ya existían, %d filas inválidas)\n", inserted, skipped, len(rowErrs))
}

// toUTF8 convierte desde ISO-8859-1 cuando el archivo no es UTF-8 válido.
func toUTF8(raw []byte) io.Reader {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return bytes.NewReader(raw)
	}
	return transform.NewReader(bytes.NewReader(raw), charmap.ISO8859_1.NewDecoder())
}

// parseUnits lee el CSV. La categoría se infiere del nombre solo aquí, en la
// ingesta; el flujo trabaja con la categoría guardada.
func parseUnits(r io.Reader) ([]*entity.InventoryItem, []error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		items []*entity.InventoryItem
		errs  []error
		seen  = make(map[string]bool)
	)
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			errs = append(errs, fmt.Errorf("línea %d: %w", line, err))
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "nombre_unidad") {
			continue
		}
		it, err := parseUnit(rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("línea %d: %w", line, err))
			continue
		}
		if seen[it.RFID] {
			errs = append(errs, fmt.Errorf("línea %d: rfid %s: %w", line, it.RFID, domain.ErrDuplicateScan))
			continue
		}
		seen[it.RFID] = true
		items = append(items, it)
	}
	return items, errs
}

func parseUnit(rec []string) (*entity.InventoryItem, error) {
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	it := &entity.InventoryItem{
		Name:     field(0),
		RFID:     applifecycle.NormalizeRFID(field(1)),
		State:    entity.StateWarehouse,
		SubState: entity.SubStateAvailable,
	}
	if it.Name == "" || it.RFID == "" {
		return nil, fmt.Errorf("nombre y rfid obligatorios: %w", domain.ErrInvalidInput)
	}
	it.Category = rules.InferCategory(it.Name)

	if s := field(2); s != "" {
		st, ok := entity.ParseState(s)
		if !ok {
			return nil, fmt.Errorf("estado %q: %w", s, domain.ErrInvalidInput)
		}
		it.State = st
		it.SubState = rules.DefaultSubState(st)
	}
	if s := field(3); s != "" {
		sub, ok := entity.ParseSubState(s)
		if !ok || !rules.ValidSubState(it.State, sub) {
			return nil, fmt.Errorf("sub-estado %q: %w", s, domain.ErrInvalidSubState)
		}
		it.SubState = sub
	}
	if s := field(4); s != "" && it.State != entity.StateWarehouse {
		it.Lot = &s
	}
	return it, nil
}

func insert(ctx context.Context, items []*entity.InventoryItem) (inserted, skipped int, err error) {
	cfg, err := config.Load()
	if err != nil {
		return 0, 0, err
	}
	pool, err := postgres.NewPool(ctx, cfg.DB, 4)
	if err != nil {
		return 0, 0, err
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		return 0, 0, err
	}
	repo := postgres.NewInventoryItemRepository(pool)
	for _, it := range items {
		switch err := repo.Create(ctx, it); {
		case errors.Is(err, domain.ErrConflict):
			skipped++
		case err != nil:
			return inserted, skipped, err
		default:
			inserted++
		}
	}
	return inserted, skipped, nil
}

func writeSQL(path string, items []*entity.InventoryItem) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	fmt.Fprintf(out, "-- Inventario de unidades (%d)\n", len(items))
	out.WriteString("INSERT INTO inventario_credocubes (nombre_unidad, rfid, categoria, estado, sub_estado, lote) VALUES\n")
	for i, it := range items {
		lot := "NULL"
		if it.Lot != nil {
			lot = "'" + escapeSQL(*it.Lot) + "'"
		}
		sep := ","
		if i == len(items)-1 {
			sep = ""
		}
		fmt.Fprintf(out, "  ('%s', '%s', '%s', '%s', '%s', %s)%s\n",
			escapeSQL(it.Name), escapeSQL(it.RFID), escapeSQL(string(it.Category)),
			escapeSQL(string(it.State)), escapeSQL(string(it.SubState)), lot, sep)
	}
	_, err = out.WriteString("ON CONFLICT (rfid) DO NOTHING;\n")
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain/entity"
)

// formatRemaining segundos como HH:MM:SS; las horas pueden superar 24.
func formatRemaining(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func timerStatus(t dto.TimerDTO) string {
	switch {
	case t.Completed:
		return "completado"
	case !t.Active:
		return "pausado"
	default:
		return "activo"
	}
}

func timerRows(timers []dto.TimerDTO) [][]string {
	rows := make([][]string, 0, len(timers))
	for _, t := range timers {
		item := "-"
		if t.ItemID != 0 {
			item = strconv.FormatInt(t.ItemID, 10)
		}
		rows = append(rows, []string{
			t.ID,
			t.Label,
			item,
			t.OperationType,
			formatRemaining(t.RemainingSeconds),
			timerStatus(t),
		})
	}
	return rows
}

func renderTimers(w io.Writer, timers []dto.TimerDTO) {
	if len(timers) == 0 {
		fmt.Fprintln(w, "Sin temporizadores")
		return
	}
	headers := []string{"ID", "Etiqueta", "Ítem", "Operación", "Restante", "Estado"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft}
	fmt.Fprintln(w, renderTable(headers, timerRows(timers), aligns))
}

// localTimers proyecta el registro local en el instante now.
func localTimers(timers []entity.Timer, now time.Time) []dto.TimerDTO {
	out := make([]dto.TimerDTO, 0, len(timers))
	for _, t := range timers {
		out = append(out, dto.NewTimerDTO(t, now))
	}
	return out
}

func renderItem(w io.Writer, it *entity.InventoryItem) {
	lot := "-"
	if it.Lot != nil && *it.Lot != "" {
		lot = *it.Lot
	}
	rows := [][]string{
		{"ID", strconv.FormatInt(it.ID, 10)},
		{"Nombre", it.Name},
		{"RFID", it.RFID},
		{"Categoría", string(it.Category)},
		{"Estado", string(it.State)},
		{"Sub-estado", string(it.SubState)},
		{"Lote", lot},
	}
	if it.System {
		rows = append(rows, []string{"Sistema", "sí"})
	}
	fmt.Fprintln(w, renderTable([]string{"Campo", "Valor"}, rows, nil))
}

func renderTransition(w io.Writer, resp dto.TransitionResponse) {
	fmt.Fprintf(w, "Aplicados: %d/%d\n", resp.Success, resp.Total)
	if resp.TimersCreated > 0 || resp.TimersDeleted > 0 {
		fmt.Fprintf(w, "Temporizadores: %d creados, %d eliminados\n", resp.TimersCreated, resp.TimersDeleted)
	}
	if len(resp.TimersMissing) > 0 {
		ids := make([]string, 0, len(resp.TimersMissing))
		for _, id := range resp.TimersMissing {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		fmt.Fprintf(w, "Sin temporizador de envío: %s\n", strings.Join(ids, ", "))
	}
	for _, warn := range resp.Warnings {
		fmt.Fprintf(w, "Aviso: %s\n", warn)
	}
	for _, e := range resp.Errors {
		fmt.Fprintf(w, "Error: %s\n", e)
	}
}

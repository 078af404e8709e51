package doselog

// Saver persiste el log completo luego de cada alta. Best-effort.
type Saver interface {
	SaveLogs(entries []Entry)
}

package tui

import (
	"fmt"
	"os"
	"time"
)

// exportProcess writes the selected process's surviving buffer to a
// timestamped file in the current directory and returns a status line
// describing the result.
func (m *Model) exportProcess(processID int) string {
	p := m.engine.Process(processID)
	if p == nil {
		return "export: no such process"
	}
	buf, ok := m.engine.Store.Buffer(processID)
	if !ok {
		return "export: nothing buffered"
	}

	name := fmt.Sprintf("piperack-%s-%s.log", p.Spec.Name, time.Now().Format("20060102-150405"))
	f, err := os.Create(name)
	if err != nil {
		return fmt.Sprintf("export failed: %v", err)
	}
	defer f.Close()

	for _, line := range buf.All() {
		f.Write(line.Raw)
		f.Write([]byte{'\n'})
	}
	return "exported to " + name
}

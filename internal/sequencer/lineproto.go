package sequencer

import (
	"fmt"
	"strconv"
	"strings"
)

// Line protocol spoken by the serial controller firmware.
//
//	host → device:  START <count> <delay_ms> <protocol> <start_addr> <brightness>
//	                STOP
//	device → host:  LED <index> <total>
//	                DONE
//	                ERR <message>

// FormatStart renders the START command for cfg, without trailing newline.
func FormatStart(cfg Config) string {
	proto := cfg.Protocol
	if proto == "" {
		proto = "default"
	}
	return fmt.Sprintf("START %d %d %s %d %d",
		cfg.LEDCount, cfg.PerLightDelay.Milliseconds(), proto, cfg.StartAddress, cfg.Brightness)
}

// ParseLine decodes a device line. Empty lines and lines starting with '#'
// are device chatter and yield ok=false without error.
func ParseLine(line string) (ev Event, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Event{}, false, nil
	}
	verb, rest, _ := strings.Cut(line, " ")
	switch strings.ToUpper(verb) {
	case "LED":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return Event{}, false, fmt.Errorf("malformed LED line %q", line)
		}
		index, err := strconv.Atoi(fields[0])
		if err != nil {
			return Event{}, false, fmt.Errorf("bad LED index in %q: %w", line, err)
		}
		total, err := strconv.Atoi(fields[1])
		if err != nil {
			return Event{}, false, fmt.Errorf("bad LED total in %q: %w", line, err)
		}
		return LEDActive(index, total), true, nil
	case "DONE":
		return Complete(), true, nil
	case "ERR":
		msg := strings.TrimSpace(rest)
		if msg == "" {
			msg = "unspecified device error"
		}
		return Failure(msg), true, nil
	default:
		return Event{}, false, fmt.Errorf("unknown device line %q", line)
	}
}

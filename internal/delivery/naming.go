package delivery

import (
	"fmt"
	"path"
	"strings"
	"time"
)

type NamingPolicy string

const (
	// NamingStable overwrites incident_{id}.xml on every delivery.
	NamingStable NamingPolicy = "stable"
	// NamingUnique writes call_{id}_{epochMillis}.xml so every delivery is a new file.
	NamingUnique NamingPolicy = "unique"
)

func (p NamingPolicy) Valid() bool {
	return p == NamingStable || p == NamingUnique
}

// Naming builds remote paths below Dir.
type Naming struct {
	Policy NamingPolicy
	Dir    string
}

func (n Naming) Path(callID string, exportedAt time.Time) string {
	var name string
	if n.Policy == NamingUnique {
		name = fmt.Sprintf("call_%s_%d.xml", callID, exportedAt.UnixMilli())
	} else {
		name = fmt.Sprintf("incident_%s.xml", callID)
	}
	return n.join(name)
}

// Destination identifies where a call's document lands for fingerprinting. Under the unique
// policy each path is new, so the destination is the call within the directory instead.
func (n Naming) Destination(callID string, exportedAt time.Time) string {
	if n.Policy == NamingUnique {
		return n.join(fmt.Sprintf("call_%s_*.xml", callID))
	}
	return n.Path(callID, exportedAt)
}

func (n Naming) join(name string) string {
	dir := strings.Trim(n.Dir, "/")
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}

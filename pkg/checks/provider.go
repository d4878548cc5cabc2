/*
Author: Amjad Yaseen
Email: ayaseen@redhat.com
Date: 2023-03-06
Modified: 2026-10-15

This file acts as the registry for all cluster probes. It includes:

- The list of probes in the order they run
- Selection of probes by ID, with include and skip lists and the
  per-probe enabled setting
*/

package checks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ayaseen/cluster-probes/pkg/checks/admission"
	"github.com/ayaseen/cluster-probes/pkg/checks/cluster"
	"github.com/ayaseen/cluster-probes/pkg/checks/common"
	"github.com/ayaseen/cluster-probes/pkg/checks/networking"
	"github.com/ayaseen/cluster-probes/pkg/checks/storage"
	"github.com/ayaseen/cluster-probes/pkg/healthcheck"
)

// GetAllChecks returns every probe in run order
func GetAllChecks(deps common.Dependencies) []healthcheck.Check {
	return []healthcheck.Check{
		cluster.NewNodeReadinessCheck(deps),
		cluster.NewAPIServerReadyzCheck(deps),
		networking.NewConsoleCheck(deps),
		networking.NewImageRegistryCheck(deps),
		storage.NewTridentBackendCheck(deps),
		storage.NewPVMountCheck(deps),
		admission.NewKyvernoCheck(deps),
	}
}

// CheckIDs returns the IDs of every probe in run order
func CheckIDs() []string {
	var ids []string
	for _, check := range GetAllChecks(common.Dependencies{Settings: common.DefaultSettings()}) {
		ids = append(ids, check.ID())
	}
	return ids
}

// toggle is implemented by probes that can be switched off in the settings
type toggle interface {
	Enabled() bool
}

// Select filters checks. A non-empty include list keeps only those IDs and
// overrides the enabled setting; otherwise probes disabled in the settings are
// dropped. Skip removes IDs. Unknown IDs in either list are an error.
func Select(all []healthcheck.Check, include, skip []string) ([]healthcheck.Check, error) {
	known := make(map[string]bool, len(all))
	for _, check := range all {
		known[check.ID()] = true
	}

	var unknown []string
	toSet := func(ids []string) map[string]bool {
		set := make(map[string]bool, len(ids))
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if !known[id] {
				unknown = append(unknown, id)
			}
			set[id] = true
		}
		return set
	}

	includeSet := toSet(include)
	skipSet := toSet(skip)

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown probe(s): %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(sortedKeys(known), ", "))
	}

	var selected []healthcheck.Check
	for _, check := range all {
		if len(includeSet) > 0 && !includeSet[check.ID()] {
			continue
		}
		if t, ok := check.(toggle); ok && len(includeSet) == 0 && !t.Enabled() {
			continue
		}
		if skipSet[check.ID()] {
			continue
		}
		selected = append(selected, check)
	}

	return selected, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

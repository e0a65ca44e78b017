package balance

import (
	"sort"

	"github.com/kilianp07/phasebalance/core/model"
)

// contribution is how much a changed unit lowers the unbalance today.
type contribution struct {
	unit int
	gain float64
}

// repair brings s back within the change budget by reverting the changed
// units that help the balance least. It reports whether s was modified; a
// modified s is re-evaluated.
func (p *problem) repair(s *Solution) bool {
	changed := p.countChanged(s)
	if changed <= p.maxChanges {
		return false
	}
	powers := p.powers(s)
	current := model.UnbalanceRate(powers)

	var contribs []contribution
	for ui := range p.units {
		u := &p.units[ui]
		if !p.unitChanged(s, u) {
			continue
		}
		reverted := model.UnbalanceRate(shift(powers, p.unitPowers(s, u), u.base))
		contribs = append(contribs, contribution{unit: ui, gain: reverted - current})
	}
	sort.SliceStable(contribs, func(i, j int) bool { return contribs[i].gain < contribs[j].gain })

	for _, c := range contribs {
		if changed <= p.maxChanges {
			break
		}
		u := &p.units[c.unit]
		changed -= p.unitChangeCount(s, u)
		p.revert(s, u)
	}
	p.evaluate(s)
	return true
}

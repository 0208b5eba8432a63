package trade

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
)

// OrderStage is a step in the sales order pipeline
type OrderStage struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	Reserved bool   `json:"reserved"`
}

// StageReadyToShip is the universal boundary stage. It always exists, is
// always last, and can be neither removed nor moved.
var StageReadyToShip = OrderStage{
	Code:     "ready_to_ship",
	Name:     "Ready to Ship",
	Reserved: true,
}

// IsReservedStageCode reports whether code names a reserved stage
func IsReservedStageCode(code string) bool {
	return strings.EqualFold(strings.TrimSpace(code), StageReadyToShip.Code)
}

var stageCodePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,49}$`)

// NewOrderStage validates and creates a custom stage
func NewOrderStage(code, name string) (*OrderStage, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if !stageCodePattern.MatchString(code) {
		return nil, shared.NewDomainError("INVALID_STAGE_CODE",
			"Stage code must start with a letter and contain only lowercase letters, digits and underscores")
	}
	if IsReservedStageCode(code) {
		return nil, shared.ErrReservedStage
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_STAGE_NAME", "Stage name cannot be empty")
	}
	return &OrderStage{Code: code, Name: name}, nil
}

// StagePipeline is the ordered set of order stages. Custom stages are user
// data; the reserved Ready to Ship stage is supplied by code and cannot be
// stored, removed or repositioned.
type StagePipeline struct {
	custom []OrderStage
}

// NewStagePipeline builds a pipeline from stored custom stages, which are
// expected in position order
func NewStagePipeline(custom []OrderStage) (*StagePipeline, error) {
	p := &StagePipeline{custom: make([]OrderStage, 0, len(custom))}
	for _, s := range custom {
		if s.Reserved || IsReservedStageCode(s.Code) {
			continue
		}
		if p.indexOf(s.Code) >= 0 {
			return nil, shared.NewDomainError("DUPLICATE_STAGE", fmt.Sprintf("Stage %q appears twice", s.Code))
		}
		p.custom = append(p.custom, OrderStage{Code: s.Code, Name: s.Name})
	}
	p.renumber()
	return p, nil
}

// Stages returns all stages in order, ending with Ready to Ship
func (p *StagePipeline) Stages() []OrderStage {
	out := make([]OrderStage, 0, len(p.custom)+1)
	out = append(out, p.custom...)
	rts := StageReadyToShip
	rts.Position = len(p.custom)
	return append(out, rts)
}

// CustomStages returns only the user-configured stages
func (p *StagePipeline) CustomStages() []OrderStage {
	out := make([]OrderStage, len(p.custom))
	copy(out, p.custom)
	return out
}

// AddStage appends a custom stage before Ready to Ship
func (p *StagePipeline) AddStage(stage OrderStage) error {
	if stage.Reserved || IsReservedStageCode(stage.Code) {
		return shared.ErrReservedStage
	}
	if p.indexOf(stage.Code) >= 0 {
		return shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Stage %q already exists", stage.Code))
	}
	p.custom = append(p.custom, OrderStage{Code: stage.Code, Name: stage.Name})
	p.renumber()
	return nil
}

// RemoveStage removes a custom stage
func (p *StagePipeline) RemoveStage(code string) error {
	if IsReservedStageCode(code) {
		return shared.ErrReservedStage
	}
	idx := p.indexOf(code)
	if idx < 0 {
		return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Stage %q not found", code))
	}
	p.custom = append(p.custom[:idx], p.custom[idx+1:]...)
	p.renumber()
	return nil
}

// Reorder sets the order of the custom stages. codes must name every custom
// stage exactly once. Ready to Ship may be listed, but only as the last code.
func (p *StagePipeline) Reorder(codes []string) error {
	if n := len(codes); n > 0 && IsReservedStageCode(codes[n-1]) {
		codes = codes[:n-1]
	}
	for _, c := range codes {
		if IsReservedStageCode(c) {
			return shared.ErrReservedStage
		}
	}
	if len(codes) != len(p.custom) {
		return shared.NewDomainError("INVALID_STAGE_ORDER", "Reorder must list every custom stage exactly once")
	}

	reordered := make([]OrderStage, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		idx := p.indexOf(c)
		if idx < 0 || seen[c] {
			return shared.NewDomainError("INVALID_STAGE_ORDER", fmt.Sprintf("Unknown or repeated stage %q", c))
		}
		seen[c] = true
		reordered = append(reordered, p.custom[idx])
	}
	p.custom = reordered
	p.renumber()
	return nil
}

func (p *StagePipeline) indexOf(code string) int {
	code = strings.ToLower(strings.TrimSpace(code))
	for i, s := range p.custom {
		if s.Code == code {
			return i
		}
	}
	return -1
}

func (p *StagePipeline) renumber() {
	for i := range p.custom {
		p.custom[i].Position = i
	}
}

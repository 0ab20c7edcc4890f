package service

import "roomlift/api/internal/config"

const (
	KindEnhance  = "enhancement"
	KindDecorate = "decoration"
)

func EnhanceKind(cfg config.JobsConfig) JobKind {
	return JobKind{
		Name:          KindEnhance,
		DefaultPrompt: cfg.EnhancePrompt,
		CreditCost:    cfg.EnhanceCost,
	}
}

func DecorateKind(cfg config.JobsConfig) JobKind {
	return JobKind{
		Name:          KindDecorate,
		DefaultPrompt: cfg.DecoratePrompt,
		CreditCost:    cfg.DecorateCost,
	}
}

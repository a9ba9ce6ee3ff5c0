package event

import (
	"context"
	"log/slog"
	"repayment-engine/internal/domain/loan"
)

// LogPublisher records schedule events in the application log. It is used
// when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "LogPublisher")}
}

func (p *LogPublisher) PublishScheduleChanged(ctx context.Context, event loan.ScheduleChangedEvent) error {
	p.logger.InfoContext(ctx, "Schedule changed",
		slog.String("routingKey", RoutingKey(event.Operation)),
		slog.Int64("loanId", event.LoanID),
		slog.Int64("revision", event.Revision),
		slog.String("loanStatus", string(event.LoanStatus)),
		slog.Int("installmentsAdded", event.InstallmentsAdded),
		slog.Int("installmentsRemoved", event.InstallmentsRemoved),
		slog.String("totalAmountChange", event.TotalAmountChange),
	)
	return nil
}

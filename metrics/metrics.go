package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-verifier/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "verifier"
)

var (
	Debug                bool = true
	validResults              = []types.Outcome{types.OutcomePassed, types.OutcomeFailed, types.OutcomeErrored}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	componentResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "component_results_total",
		Help:      "Count of component verification results",
	}, []string{
		"agent",
		"run_id",
		"component",
		"result",
	})

	verificationResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "verification_results",
		Help:      "Result of verification runs",
	}, []string{
		"agent",
		"run_id",
		"result",
	})

	verificationComponentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "verification_component_total",
		Help:      "Total number of components verified",
	}, []string{
		"agent",
		"run_id",
	})

	verificationComponentPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "verification_component_passed",
		Help:      "Number of components that passed verification",
	}, []string{
		"agent",
		"run_id",
	})

	verificationComponentFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "verification_component_failed",
		Help:      "Number of components that failed verification",
	}, []string{
		"agent",
		"run_id",
	})

	verificationComponentErrored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "verification_component_errored",
		Help:      "Number of components whose verification errored",
	}, []string{
		"agent",
		"run_id",
	})

	verificationDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "verification_duration",
		Help:      "Duration of verification runs",
	}, []string{
		"agent",
		"run_id",
	})

	componentDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "component_duration",
		Help:      "Duration of component verifications",
	}, []string{
		"agent",
		"run_id",
		"component",
	})

	notificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "notification_failures_total",
		Help:      "Count of failed run notifications",
	}, []string{
		"agent",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordComponentResult(agent string, runID string, component string, result types.Outcome, duration time.Duration) {
	if !isValidResult(result) {
		log.Error("RecordComponentResult - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "component_results_total",
			"agent", agent,
			"run_id", runID,
			"component", component,
			"result", result)
	}
	componentResultsTotal.WithLabelValues(agent, runID, component, string(result)).Inc()
	componentDuration.WithLabelValues(agent, runID, component).Set(duration.Seconds())
}

func RecordVerification(
	agent string,
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	errored int,
	duration time.Duration,
) {
	verificationResults.WithLabelValues(agent, runID, result).Set(1)
	verificationComponentTotal.WithLabelValues(agent, runID).Add(float64(total))
	verificationComponentPassed.WithLabelValues(agent, runID).Add(float64(passed))
	verificationComponentFailed.WithLabelValues(agent, runID).Add(float64(failed))
	verificationComponentErrored.WithLabelValues(agent, runID).Add(float64(errored))
	verificationDuration.WithLabelValues(agent, runID).Set(duration.Seconds())
}

func RecordNotificationFailure(agent string) {
	if Debug {
		log.Debug("metric inc",
			"m", "notification_failures_total",
			"agent", agent,
		)
	}
	notificationFailuresTotal.WithLabelValues(agent).Inc()
}

func isValidResult(result types.Outcome) bool {
	return slices.Contains(validResults, result)
}

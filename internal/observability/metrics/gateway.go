package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type callKey struct {
	surface string
	method  string
	outcome string
}

type relayKey struct {
	operation string
	outcome   string
}

type gatewayCollector struct {
	mu      sync.Mutex
	calls   map[callKey]uint64
	relayed map[relayKey]uint64
}

var gateway = &gatewayCollector{
	calls:   make(map[callKey]uint64),
	relayed: make(map[relayKey]uint64),
}

// ObserveContractCall records one read or write against a contract surface.
func ObserveContractCall(surface, method string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	gateway.mu.Lock()
	gateway.calls[callKey{surface: surface, method: method, outcome: outcome}]++
	gateway.mu.Unlock()
}

// ObserveRelayerRequest records one relayer interaction by operation
// (submit, status) and outcome.
func ObserveRelayerRequest(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	gateway.mu.Lock()
	gateway.relayed[relayKey{operation: operation, outcome: outcome}]++
	gateway.mu.Unlock()
}

func renderGateway() string {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()

	type callMetric struct {
		callKey
		value uint64
	}
	type relayMetric struct {
		relayKey
		value uint64
	}

	calls := make([]callMetric, 0, len(gateway.calls))
	for key, value := range gateway.calls {
		calls = append(calls, callMetric{callKey: key, value: value})
	}
	relayed := make([]relayMetric, 0, len(gateway.relayed))
	for key, value := range gateway.relayed {
		relayed = append(relayed, relayMetric{relayKey: key, value: value})
	}

	sort.Slice(calls, func(i, j int) bool {
		if calls[i].surface == calls[j].surface {
			if calls[i].method == calls[j].method {
				return calls[i].outcome < calls[j].outcome
			}
			return calls[i].method < calls[j].method
		}
		return calls[i].surface < calls[j].surface
	})
	sort.Slice(relayed, func(i, j int) bool {
		if relayed[i].operation == relayed[j].operation {
			return relayed[i].outcome < relayed[j].outcome
		}
		return relayed[i].operation < relayed[j].operation
	})

	var builder strings.Builder
	builder.WriteString("# HELP think_contract_calls_total Total number of contract surface calls.\n")
	builder.WriteString("# TYPE think_contract_calls_total counter\n")
	for _, metric := range calls {
		builder.WriteString(fmt.Sprintf("think_contract_calls_total{surface=\"%s\",method=\"%s\",outcome=\"%s\"} %d\n",
			escape(metric.surface), escape(metric.method), escape(metric.outcome), metric.value))
	}

	builder.WriteString("# HELP think_relayer_requests_total Total number of relayer requests.\n")
	builder.WriteString("# TYPE think_relayer_requests_total counter\n")
	for _, metric := range relayed {
		builder.WriteString(fmt.Sprintf("think_relayer_requests_total{operation=\"%s\",outcome=\"%s\"} %d\n",
			escape(metric.operation), escape(metric.outcome), metric.value))
	}
	return builder.String()
}

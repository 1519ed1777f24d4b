package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_auth_registrations_total",
		Help: "User registrations by role",
	}, []string{"role"})

	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_auth_logins_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	TokenValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_auth_token_validations_total",
		Help: "Access token validations by result",
	}, []string{"result"})
)

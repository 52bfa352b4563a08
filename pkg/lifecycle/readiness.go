package lifecycle

// ReadinessView is a pure projection over a Controller's state, meant to be
// marshaled directly as the body of GET /health and GET /health/ready.
type ReadinessView struct {
	controller *Controller
}

// NewReadinessView wraps controller for health/readiness reporting.
func NewReadinessView(controller *Controller) *ReadinessView {
	return &ReadinessView{controller: controller}
}

// Status is the wire shape of both the liveness and readiness responses.
type Status struct {
	Status         string `json:"status"`
	LifecycleState string `json:"lifecycleState"`
	ActiveCount    int    `json:"activeCount"`
	Message        string `json:"message,omitempty"`
}

// Liveness always reports status "OK" while the process is alive; it exists for
// observability, not for routing decisions.
func (v *ReadinessView) Liveness() Status {
	return Status{
		Status:         "OK",
		LifecycleState: v.controller.CurrentState().String(),
		ActiveCount:    v.controller.ActiveCount(),
	}
}

// Readiness reports READY iff the controller is accepting new work.
// Callers (a traffic router or load balancer) use the non-200 case to pull
// the instance out of rotation.
func (v *ReadinessView) Readiness() (Status, bool) {
	if v.controller.IsAccepting() {
		return Status{
			Status:         "READY",
			LifecycleState: v.controller.CurrentState().String(),
			ActiveCount:    v.controller.ActiveCount(),
		}, true
	}
	return Status{
		Status:         "NOT_READY",
		LifecycleState: v.controller.CurrentState().String(),
		ActiveCount:    v.controller.ActiveCount(),
		Message:        "instance is draining or terminated; retry against another instance",
	}, false
}

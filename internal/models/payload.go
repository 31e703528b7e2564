package models

// OutgoingPayload is the tagged mapping produced by a transformer and sent
// to the FCM HTTP v1 gateway. Sub-trees are left as generic maps because
// the upstream contract is defined by FCM, not by this system; the
// transformer's job is to build exactly the tree the shipping apps
// expect, not to model the entire FCM schema.
type OutgoingPayload map[string]interface{}

// EnsureMap returns the nested map at key, creating it (and inserting it
// into p) if absent. It never overwrites an existing non-map value.
func (p OutgoingPayload) EnsureMap(key string) map[string]interface{} {
	if existing, ok := p[key].(map[string]interface{}); ok {
		return existing
	}
	m := map[string]interface{}{}
	p[key] = m
	return m
}

// TransformResult is what every payload transformer variant returns.
type TransformResult struct {
	UpdateRateLimits bool
	Payload          OutgoingPayload
}

// Transformer builds an OutgoingPayload from a NotificationRequest. Each
// variant (legacy, android-v1, ios-v1) is a pure function of this type;
// the HTTP layer picks one by route and hands it to the orchestrator,
// never by subclassing.
type Transformer func(req *NotificationRequest) TransformResult

package flow

import "context"

// WidgetStrategy obtains a credential through the embedded third-party
// widget. All lifecycle work is delegated to the bridge; the strategy only
// adapts it to the uniform strategy contract.
type WidgetStrategy struct {
	channel WidgetChannel
}

func NewWidgetStrategy(channel WidgetChannel) *WidgetStrategy {
	return &WidgetStrategy{channel: channel}
}

func (s *WidgetStrategy) ID() string { return "widget" }

func (s *WidgetStrategy) Start(ctx context.Context, deliver func(Credential), fail func(error)) error {
	return s.channel.OpenWidget(deliver, fail)
}

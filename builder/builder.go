package builder

import (
	"fmt"
	"log/slog"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/notification"
	"github.com/Kotaro7750/console-notifier/receiver"
	"github.com/Kotaro7750/console-notifier/sender"
)

var senderBuilderMap map[string]abstraction.SenderBuilder = make(map[string]abstraction.SenderBuilder)
var receiverBuilderMap map[string]abstraction.ReceiverBuilder = make(map[string]abstraction.ReceiverBuilder)

func init() {
	receiverBuilderMap["dummy"] = receiver.DummyReceiverBuilder

	receiverBuilderMap["HTTP"] = receiver.HTTPReceiverBuilder

	receiverBuilderMap["backupWatch"] = receiver.BackupWatchReceiverBuilder

	senderBuilderMap["log"] = sender.LogSenderBuilder

	senderBuilderMap["autoDismiss"] = sender.AutoDismissSenderBuilder

	senderBuilderMap["display"] = sender.DisplaySenderBuilder

	senderBuilderMap["webPush"] = sender.WebPushSenderBuilder
}

func Build(
	baseLogger *slog.Logger,
	deps abstraction.Dependencies,
	receiverConfigs []abstraction.AbstractChannelComponentConfig,
	senderConfigs []abstraction.AbstractChannelComponentConfig,
) (
	receivers []*abstraction.AutonomousChannelComponent[notification.Command],
	senders []*abstraction.AutonomousChannelComponent[notification.Event],
	err error,
) {
	receivers, err = build(baseLogger, "receiver", receiverBuilderMap, deps, receiverConfigs)
	if err != nil {
		return nil, nil, err
	}

	senders, err = build(baseLogger, "sender", senderBuilderMap, deps, senderConfigs)
	if err != nil {
		return nil, nil, err
	}
	return
}

func build[T any](
	baseLogger *slog.Logger,
	componentType string,
	builderMap map[string]abstraction.AbstractChannelComponentBuilder[T],
	deps abstraction.Dependencies,
	configs []abstraction.AbstractChannelComponentConfig,
) ([]*abstraction.AutonomousChannelComponent[T], error) {
	components := make([]*abstraction.AutonomousChannelComponent[T], 0, len(configs))
	seen := make(map[string]struct{}, len(configs))

	for _, config := range configs {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", componentType, err)
		}

		if _, ok := seen[config.Id]; ok {
			return nil, fmt.Errorf("%s id: %s is duplicated", componentType, config.Id)
		}
		seen[config.Id] = struct{}{}

		builder, ok := builderMap[config.Kind]
		if !ok {
			return nil, fmt.Errorf("%s kind: %s for %s is not found", componentType, config.Kind, config.Id)
		}

		component, err := builder(config.Id, config.Properties, deps)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s id: %s, kind: %s, error: %w", componentType, config.Id, config.Kind, err)
		}
		component.SetLogger(baseLogger.With("type", componentType, "kind", config.Kind, "id", component.GetId()))

		components = append(components, abstraction.NewAutonomousChannelComponent(component))
	}
	return components, nil
}

// Kinds lists the registered receiver and sender kinds.
func Kinds() (receiverKinds []string, senderKinds []string) {
	for kind := range receiverBuilderMap {
		receiverKinds = append(receiverKinds, kind)
	}
	for kind := range senderBuilderMap {
		senderKinds = append(senderKinds, kind)
	}
	return
}

// Package factory builds pluggable modules, such as metrics sinks and light
// triggers, from a type name and a map of raw settings.
//
//	reg := factory.NewRegistry[scheduler.Trigger]()
//	_ = reg.Register("http", func(conf map[string]any) (scheduler.Trigger, error) {
//		var c trigger.HTTPConfig
//		if err := factory.Decode(conf, &c); err != nil {
//			return nil, err
//		}
//		return trigger.NewHTTPTrigger(c, nil)
//	})
//	t, err := reg.Create(factory.ModuleConfig{Type: "http", Conf: map[string]any{"url": "http://lamp.local/toggle"}})
package factory

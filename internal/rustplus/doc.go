// Package rustplus — WebSocket-клиент Rust+ (Facepunch Companion), которого
// боту хватает для тим-чата: отправка сообщений и чтение команд.
//
// Клиент подключается напрямую к серверу (ws://ip:port) либо через прокси
// Facepunch (wss://companion-rust.facepunch.com/game/...). Запросы и ответы
// кодируются protobuf вручную (см. wire.go), запись в сокет сериализована,
// соединение держится ping'ом (прокси) или app-heartbeat'ом (напрямую),
// а при обрыве клиент переподключается с экспоненциальной задержкой.
//
// Пример:
//
//	rp := rustplus.New(rustplus.Config{Server: "1.2.3.4", Port: 28082, PlayerID: id, PlayerToken: tok}, log)
//	rp.HandleCommands(func(ctx context.Context, user, cmd, args string) (string, bool) {
//	    return "pong", cmd == "ping"
//	})
//	if err := rp.Connect(ctx); err != nil { ... }
//	defer rp.Disconnect()
//	_ = rp.Send(ctx, "team", "Hello team!")
package rustplus

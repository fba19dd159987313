// Package bot — склейка вокруг tracker, notify, telegram и rustplus,
// реализующая бота статусов. Бот:
//   - раз в интервал опрашивает игроков (Steam, BattleMetrics) и серверы
//     (Ubisoft, BattleMetrics);
//   - сравнивает снимок с сохранённым и рассылает одно сообщение со всеми
//     изменениями в Telegram и тим-чат Rust+;
//   - отвечает на /status и !status свежим полным отчётом.
//
// Жизненный цикл:
//   - Собрать бота через FromConfig(cfg, log) или New(log) и сеттеры.
//   - Запустить Start() и остановить Stop().
//
// Пример:
//
//	b, err := bot.FromConfig(cfg, log)
//	if err != nil { log.Fatal(err) }
//	if err := b.Start(); err != nil { log.Fatal(err) }
//	defer b.Stop()
//	<-ctx.Done()
//
// Первый удачный опрос только запоминает базу и ничего не шлёт (если не
// включён announce_on_start). Тик, пришедший во время цикла, пропускается.
package bot

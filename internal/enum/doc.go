// Package enum: справочные типы: небольшие таблицы-перечисления,
// которые читаются целиком, кэшируются в памяти и ищутся по id, имени
// или готовому члену.
//
// Снапшот типа загружается лениво при первом чтении и заменяется только
// целиком: Purge (при разрешённых изменениях) или Update. Политика
// OnLookupFailure решает, что делать при промахе по непустому ключу.
package enum

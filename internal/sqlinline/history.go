package sqlinline

// The postgres history backend keeps one row per storage key. The table is
// created on startup so the service can point at an empty database.

const QEnsureHistoryTable = `--sql 7f3c4a1e-9b2d-4e8f-a1c6-3d5e7f9a0b2c
create table if not exists chat_history_entries (
  key        text primary key,
  value      text not null,
  updated_at timestamptz not null default now()
);
`

const QSelectHistoryEntry = `--sql c1d2e3f4-a5b6-4c7d-8e9f-0a1b2c3d4e5f
select value
from chat_history_entries
where key = $1;
`

const QUpsertHistoryEntry = `--sql 5a6b7c8d-9e0f-4a1b-b2c3-d4e5f6a7b8c9
insert into chat_history_entries (key, value, updated_at)
values ($1, $2, now())
on conflict (key)
do update set value = excluded.value, updated_at = now();
`

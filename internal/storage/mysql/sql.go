package mysql

const hotelColumns = `
  id, external_id, reference_code, title, business_name,
  address1, address2, address3, address4, zip, city, country, email, full_address,
  latitude, longitude, distance_airport, distance_rail, rating, stars,
  capacity, meeting_room_count,
  texts, attributes, amenities, meeting_rooms, cancellation_rules, media,
  status, updated_at`

// Lookup is OR-combined over both natural keys; an exact external_id match
// wins over a reference_code match so id repair can detect the mismatch case.
const findHotelSQL = `
SELECT` + hotelColumns + `
FROM hotels
WHERE status <> 'trashed'
  AND (external_id = ? OR (? <> '' AND reference_code = ?))
ORDER BY (external_id = ?) DESC, id
LIMIT 1`

const insertHotelSQL = `
INSERT INTO hotels
  (external_id, reference_code, title, business_name,
   address1, address2, address3, address4, zip, city, country, email, full_address,
   latitude, longitude, distance_airport, distance_rail, rating, stars,
   capacity, meeting_room_count,
   texts, attributes, amenities, meeting_rooms, cancellation_rules, media,
   status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'active')`

const repairExternalIDSQL = `
UPDATE hotels SET external_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

// Idempotent: a second call matches zero rows.
const markWithdrawnSQL = `
UPDATE hotels SET status = 'withdrawn', updated_at = CURRENT_TIMESTAMP
WHERE external_id = ? AND status = 'active'`

const listActiveIDsSQL = `
SELECT DISTINCT external_id FROM hotels WHERE status = 'active'`

const duplicateExternalIDsSQL = `
SELECT external_id FROM hotels
WHERE status = 'active'
GROUP BY external_id HAVING COUNT(*) > 1
ORDER BY external_id`

const duplicateReferenceCodesSQL = `
SELECT reference_code FROM hotels
WHERE status = 'active' AND reference_code <> ''
GROUP BY reference_code HAVING COUNT(*) > 1
ORDER BY reference_code`

const listByExternalIDSQL = `
SELECT` + hotelColumns + `
FROM hotels WHERE status = 'active' AND external_id = ? ORDER BY id`

const listByReferenceCodeSQL = `
SELECT` + hotelColumns + `
FROM hotels WHERE status = 'active' AND reference_code = ? ORDER BY id`

// Trash is a soft delete; cleanup stays reversible.
const trashSQL = `
UPDATE hotels SET status = 'trashed', updated_at = CURRENT_TIMESTAMP WHERE id = ?`

const getHotelSQL = `
SELECT` + hotelColumns + `
FROM hotels WHERE external_id = ? AND status <> 'trashed' ORDER BY id LIMIT 1`

const listHotelsSQL = `
SELECT` + hotelColumns + `
FROM hotels WHERE status = 'active' ORDER BY title, id LIMIT ?`
